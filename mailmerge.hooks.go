package mailmerge

import (
	"context"
	"sync"
	"time"

	"github.com/itsatony/go-mailmerge/internal"
)

// TraceEvent describes one step of a resolution pass.
type TraceEvent = internal.TraceEvent

// TracePoint identifies where in a resolution pass a TraceEvent was emitted.
type TracePoint = internal.TracePoint

// EvalKind classifies how a tag was evaluated.
type EvalKind = internal.EvalKind

// Trace points.
const (
	TracePointTagOpen  = internal.TracePointTagOpen
	TracePointTagClose = internal.TracePointTagClose
	TracePointEvaluate = internal.TracePointEvaluate
)

// Evaluation kinds reported on evaluate trace events.
const (
	EvalKindLookup     = internal.EvalKindLookup
	EvalKindMissing    = internal.EvalKindMissing
	EvalKindTernary    = internal.EvalKindTernary
	EvalKindComparator = internal.EvalKindComparator
	EvalKindMalformed  = internal.EvalKindMalformed
)

// TraceHook observes resolution. It cannot alter the result.
type TraceHook func(TraceEvent)

// HookPoint identifies when a hook is called during a batch.
type HookPoint string

// Hook points for batch lifecycle events.
const (
	// HookBeforeBatch is called before any row of a batch is resolved.
	HookBeforeBatch HookPoint = "before_batch"

	// HookAfterBatch is called once every row has an output.
	HookAfterBatch HookPoint = "after_batch"

	// HookBeforeRow is called before a row is resolved. An error fails that row only.
	HookBeforeRow HookPoint = "before_row"

	// HookAfterRow is called after a row was resolved or failed.
	HookAfterRow HookPoint = "after_row"

	// HookBeforeSave is called before a composed message is saved. An error
	// skips saving that message.
	HookBeforeSave HookPoint = "before_save"

	// HookAfterSave is called after a message was saved or failed to save.
	HookAfterSave HookPoint = "after_save"
)

// Hook is a function called at specific points during a batch.
// Return an error to abort the operation (for "before" hooks).
// Errors from "after" hooks are logged but don't affect the operation result.
type Hook func(ctx context.Context, point HookPoint, data *HookData) error

// HookData carries context information to hooks.
type HookData struct {
	// BatchID identifies the batch.
	BatchID string

	// TemplateName is the name of the merge template, if it has one.
	TemplateName string

	// Index is the position of the row in the batch (row hooks and save hooks).
	Index int

	// Row is the input row (row hooks and save hooks).
	Row Row

	// Fields are the resolved fields (after_row, save hooks).
	Fields *Fields

	// Message is the composed message (save hooks).
	Message *Message

	// Folder is the target folder (save hooks).
	Folder string

	// Total is the number of rows in the batch.
	Total int

	// Error is any error that occurred (for after_* hooks).
	Error error

	// Metadata allows hooks to pass data to each other.
	Metadata map[string]any
}

// NewHookData creates a new HookData for a batch.
func NewHookData(batchID, templateName string) *HookData {
	return &HookData{
		BatchID:      batchID,
		TemplateName: templateName,
		Metadata:     make(map[string]any),
	}
}

// ForRow returns a copy of d scoped to one row. Metadata starts empty so that
// concurrent rows do not share a map.
func (d *HookData) ForRow(index int, row Row) *HookData {
	return &HookData{
		BatchID:      d.BatchID,
		TemplateName: d.TemplateName,
		Total:        d.Total,
		Index:        index,
		Row:          row,
		Metadata:     make(map[string]any),
	}
}

// WithFields sets the resolved fields.
func (d *HookData) WithFields(fields *Fields) *HookData {
	d.Fields = fields
	return d
}

// WithMessage sets the composed message and its folder.
func (d *HookData) WithMessage(msg *Message, folder string) *HookData {
	d.Message = msg
	d.Folder = folder
	return d
}

// WithError sets the error.
func (d *HookData) WithError(err error) *HookData {
	d.Error = err
	return d
}

// SetMetadata sets a metadata value.
func (d *HookData) SetMetadata(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = value
}

// GetMetadata gets a metadata value.
func (d *HookData) GetMetadata(key string) (any, bool) {
	if d.Metadata == nil {
		return nil, false
	}
	v, ok := d.Metadata[key]
	return v, ok
}

// HookRegistry manages hook registration and execution.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[HookPoint][]Hook
}

// NewHookRegistry creates a new hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register adds a hook for the specified point.
func (r *HookRegistry) Register(point HookPoint, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[point] = append(r.hooks[point], hook)
}

// RegisterMultiple adds a hook for multiple points.
func (r *HookRegistry) RegisterMultiple(hook Hook, points ...HookPoint) {
	for _, point := range points {
		r.Register(point, hook)
	}
}

// Clear removes all hooks for a specific point.
func (r *HookRegistry) Clear(point HookPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, point)
}

// Run executes all hooks for the specified point.
// For "before" hooks, the first error stops execution and is returned.
// For "after" hooks, every hook runs and the first error is returned.
// A nil registry runs nothing.
func (r *HookRegistry) Run(ctx context.Context, point HookPoint, data *HookData) error {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	hooks := r.hooks[point]
	r.mu.RUnlock()

	var first error
	for _, hook := range hooks {
		if err := hook(ctx, point, data); err != nil {
			if isBeforeHook(point) {
				return NewHookError(point, err)
			}
			if first == nil {
				first = NewHookError(point, err)
			}
		}
	}
	return first
}

// Count returns the number of hooks registered for a point.
func (r *HookRegistry) Count(point HookPoint) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[point])
}

// HasHooks checks if any hooks are registered for a point.
func (r *HookRegistry) HasHooks(point HookPoint) bool {
	return r.Count(point) > 0
}

// isBeforeHook checks if a hook point is a "before" hook.
func isBeforeHook(point HookPoint) bool {
	switch point {
	case HookBeforeBatch, HookBeforeRow, HookBeforeSave:
		return true
	default:
		return false
	}
}

// LoggingHook creates a hook that hands every call to logFn.
func LoggingHook(logFn func(point HookPoint, data *HookData)) Hook {
	return func(ctx context.Context, point HookPoint, data *HookData) error {
		logFn(point, data)
		return nil
	}
}

// TimingHook creates a hook that records the start time on "before" points.
// Call the returned function from an "after" hook to get the elapsed time.
// Start and end must see the same HookData.
func TimingHook() (Hook, func(*HookData) time.Duration) {
	const metadataKey = "_timing_start"

	hook := func(ctx context.Context, point HookPoint, data *HookData) error {
		if isBeforeHook(point) {
			data.SetMetadata(metadataKey, time.Now())
		}
		return nil
	}

	elapsed := func(data *HookData) time.Duration {
		start, ok := data.GetMetadata(metadataKey)
		if !ok {
			return 0
		}
		t, ok := start.(time.Time)
		if !ok {
			return 0
		}
		return time.Since(t)
	}

	return hook, elapsed
}

// Hook error messages.
const (
	ErrMsgHookFailed = "hook execution failed"
)

// HookError represents an error from hook execution.
type HookError struct {
	Message string
	Point   HookPoint
	Cause   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	msg := e.Message
	if e.Point != "" {
		msg += " (hook: " + string(e.Point) + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error {
	return e.Cause
}

// NewHookError creates a new hook error.
func NewHookError(point HookPoint, cause error) *HookError {
	return &HookError{
		Message: ErrMsgHookFailed,
		Point:   point,
		Cause:   cause,
	}
}
