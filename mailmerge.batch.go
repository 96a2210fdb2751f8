package mailmerge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RowOutput is the result of resolving one row of a batch.
type RowOutput struct {
	Index  int
	Row    Row
	Fields Fields
	// Err is set when the row was rejected by a hook or never started.
	Err error
}

// OK reports whether the row was resolved.
func (o RowOutput) OK() bool {
	return o.Err == nil
}

// BatchResult holds one RowOutput per input row, in input order.
type BatchResult struct {
	BatchID  string
	Outputs  []RowOutput
	Duration time.Duration
}

// Len returns the number of outputs, which always equals the number of input rows.
func (b *BatchResult) Len() int {
	return len(b.Outputs)
}

// Succeeded returns the number of resolved rows.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Outputs {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outputs that carry an error.
func (b *BatchResult) Failed() []RowOutput {
	var failed []RowOutput
	for _, o := range b.Outputs {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// NewBatchID returns a fresh batch identifier.
func NewBatchID() string {
	return BatchIDPrefix + uuid.NewString()
}

// Merge resolves t against every row, running up to the configured
// concurrency in parallel. It returns exactly one output per row in input
// order. Rows that have not started when ctx is done or the engine's time
// limit expires carry the context error; rows already running complete.
// The only error Merge returns is a rejection by a before_batch hook.
func (e *Engine) Merge(ctx context.Context, t *MergeTemplate, rows []Row) (*BatchResult, error) {
	return e.merge(ctx, NewBatchID(), t, rows)
}

func (e *Engine) merge(ctx context.Context, batchID string, t *MergeTemplate, rows []Row) (*BatchResult, error) {
	start := time.Now()
	if e.config.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.timeLimit)
		defer cancel()
	}

	hooks := e.config.hooks
	data := NewHookData(batchID, t.Name)
	data.Total = len(rows)

	logger := e.logger.With(zap.String(LogFieldBatchID, batchID))
	logger.Debug(LogMsgMergeStart, zap.Int(LogFieldRows, len(rows)))

	if err := hooks.Run(ctx, HookBeforeBatch, data); err != nil {
		return nil, err
	}

	outputs := make([]RowOutput, len(rows))

	var g errgroup.Group
	g.SetLimit(e.config.concurrency)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			outputs[i] = e.skippedRow(logger, i, row, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outputs[i] = e.skippedRow(logger, i, row, err)
				return nil
			}
			outputs[i] = e.mergeRow(ctx, logger, hooks, data.ForRow(i, row), t)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		BatchID:  batchID,
		Outputs:  outputs,
		Duration: time.Since(start),
	}

	if err := hooks.Run(ctx, HookAfterBatch, data); err != nil {
		logger.Warn(LogMsgHookFailed, zap.String(LogFieldPoint, string(HookAfterBatch)), zap.Error(err))
	}

	logger.Debug(LogMsgMergeEnd,
		zap.Int(LogFieldRows, result.Len()),
		zap.Int(LogFieldFailed, result.Len()-result.Succeeded()),
		zap.Duration(LogFieldDuration, result.Duration))

	return result, nil
}

func (e *Engine) mergeRow(ctx context.Context, logger *zap.Logger, hooks *HookRegistry, data *HookData, t *MergeTemplate) RowOutput {
	out := RowOutput{Index: data.Index, Row: data.Row}

	if err := hooks.Run(ctx, HookBeforeRow, data); err != nil {
		out.Err = NewRowError(ErrMsgRowBeforeHook, data.Index, err)
		logger.Debug(LogMsgRowFailed, zap.Int(LogFieldIndex, data.Index), zap.Error(out.Err))
	} else {
		out.Fields = e.ResolveFields(t, data.Row)
		data.WithFields(&out.Fields)
		logger.Debug(LogMsgRowResolved, zap.Int(LogFieldIndex, data.Index))
	}

	if err := hooks.Run(ctx, HookAfterRow, data.WithError(out.Err)); err != nil {
		logger.Warn(LogMsgHookFailed, zap.String(LogFieldPoint, string(HookAfterRow)), zap.Error(err))
	}
	return out
}

func (e *Engine) skippedRow(logger *zap.Logger, index int, row Row, cause error) RowOutput {
	logger.Debug(LogMsgRowSkipped, zap.Int(LogFieldIndex, index))
	return RowOutput{
		Index: index,
		Row:   row,
		Err:   NewRowError(ErrMsgBatchCancelled, index, cause),
	}
}
