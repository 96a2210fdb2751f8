package mailmerge

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/itsatony/go-mailmerge/internal"
)

// Engine resolves merge templates against rows.
// An Engine is safe for concurrent use.
type Engine struct {
	resolver  *internal.Resolver
	inspector *internal.Inspector
	config    *engineConfig
	logger    *zap.Logger
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.concurrency <= 0 {
		return nil, NewConfigValueError(ErrMsgEngineConcurrency, MetaKeyConcurrency, strconv.Itoa(config.concurrency))
	}
	if config.timeLimit < 0 {
		return nil, NewConfigValueError(ErrMsgInvalidTimeLimit, MetaKeyTimeLimit, config.timeLimit.String())
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var tracer internal.Tracer
	if hook := config.traceHook; hook != nil {
		tracer = func(ev internal.TraceEvent) { hook(ev) }
	}

	logger.Debug(LogMsgEngineCreated,
		zap.Int(LogFieldConcurrency, config.concurrency),
		zap.Duration(LogFieldTimeLimit, config.timeLimit))

	return &Engine{
		resolver:  internal.NewResolver(tracer, logger),
		inspector: internal.NewInspector(logger),
		config:    config,
		logger:    logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Hooks returns the engine's hook registry, which may be nil.
func (e *Engine) Hooks() *HookRegistry {
	return e.config.hooks
}

// Resolve returns template with every tag replaced by its value for row.
// It is a pure function of its inputs and never fails.
func (e *Engine) Resolve(template string, row Row) string {
	return e.resolver.Resolve(template, row)
}

// ResolveFields resolves every string of t against row. Recipient entries are
// resolved one by one; entries that resolve to blank text are dropped.
func (e *Engine) ResolveFields(t *MergeTemplate, row Row) Fields {
	return Fields{
		Subject:    e.Resolve(t.Subject, row),
		Body:       e.Resolve(t.Body, row),
		To:         e.resolveList(t.To, row),
		Cc:         e.resolveList(t.Cc, row),
		Bcc:        e.resolveList(t.Bcc, row),
		ReplyTo:    e.resolveList(t.ReplyTo, row),
		FollowupTo: e.resolveList(t.FollowupTo, row),
		Mode:       t.Mode.orDefault(),
	}
}

func (e *Engine) resolveList(entries []string, row Row) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if v := strings.TrimSpace(e.Resolve(entry, row)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
