package mailmerge

import (
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	logger      *zap.Logger
	traceHook   TraceHook
	concurrency int
	timeLimit   time.Duration
	hooks       *HookRegistry
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		concurrency: DefaultConcurrency,
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithTraceHook installs a hook called at every tag open, tag close and
// evaluation. The hook observes resolution and cannot change it; it may be
// called from several goroutines during Merge.
func WithTraceHook(hook TraceHook) Option {
	return func(c *engineConfig) {
		c.traceHook = hook
	}
}

// WithConcurrency sets how many rows Merge resolves in parallel.
// Default: 8
func WithConcurrency(n int) Option {
	return func(c *engineConfig) {
		c.concurrency = n
	}
}

// WithTimeLimit bounds the wall-clock time of a single Merge call. Rows not
// started before the limit expires are reported with the context error.
// Use 0 for no limit.
// Default: 0
func WithTimeLimit(d time.Duration) Option {
	return func(c *engineConfig) {
		c.timeLimit = d
	}
}

// WithHooks sets the lifecycle hook registry used by Merge and Runner.
// Default: nil (no hooks)
func WithHooks(hooks *HookRegistry) Option {
	return func(c *engineConfig) {
		c.hooks = hooks
	}
}
