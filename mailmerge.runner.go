package mailmerge

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner executes jobs: it resolves every row, composes one message per
// resolved row and saves it to a sink. A failing row never stops the others.
type Runner struct {
	engine  *Engine
	sink    MessageSink
	storage TemplateStorage
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	stores map[string]*CachedStorage
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Sink receives composed messages (required).
	Sink MessageSink

	// Engine resolves the rows. When nil, each run builds an engine from the
	// job's concurrency and time limit.
	Engine *Engine

	// Storage resolves template_ref jobs. When nil, a job's Store URI is
	// opened on first use and kept, cached, until Close.
	Storage TemplateStorage

	Logger *zap.Logger

	// Now overrides the clock used for message dates.
	Now func() time.Time
}

// RowFailure records why one row produced no saved message.
type RowFailure struct {
	Index int
	Row   Row
	Err   error
}

// JobReport summarizes a run.
type JobReport struct {
	BatchID   string
	Total     int
	Saved     int
	Failed    int
	Folder    string
	Locations []string
	Failures  []RowFailure
	Duration  time.Duration
}

// NewRunner creates a Runner.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Sink == nil {
		return nil, NewConfigError(ErrMsgRunnerNoSink, nil)
	}
	logger := config.Logger
	if logger == nil && config.Engine != nil {
		logger = config.Engine.Logger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine:  config.Engine,
		sink:    config.Sink,
		storage: config.Storage,
		logger:  logger,
		now:     config.Now,
		stores:  make(map[string]*CachedStorage),
	}, nil
}

// Run executes cfg against table, or against the job's data file when table
// is nil. The report is returned whenever the merge ran; the error is
// non-nil as well when rows existed and none was saved.
func (r *Runner) Run(ctx context.Context, cfg *JobConfig, table *Table) (*JobReport, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if table == nil {
		var err error
		if table, err = cfg.LoadTable(r.logger); err != nil {
			return nil, err
		}
	}

	engine, err := r.engineFor(cfg)
	if err != nil {
		return nil, err
	}

	t, err := r.resolveTemplate(ctx, cfg)
	if err != nil {
		return nil, err
	}

	folder, err := ResolveFolder(ctx, r.sink, cfg.Folder, r.logger)
	if err != nil {
		return nil, err
	}

	batchID := NewBatchID()
	logger := r.logger.With(zap.String(LogFieldBatchID, batchID))
	logger.Info(LogMsgJobStart,
		zap.String(LogFieldTemplate, t.Name),
		zap.Int(LogFieldRows, table.Len()),
		zap.String(LogFieldFolder, folder))

	result, err := engine.merge(ctx, batchID, t, table.Rows())
	if err != nil {
		return nil, err
	}

	report := &JobReport{
		BatchID: batchID,
		Total:   result.Len(),
		Folder:  folder,
	}

	opts := cfg.ComposeOptions()
	opts.Now = r.now
	base := NewHookData(batchID, t.Name)
	base.Total = result.Len()

	for _, out := range result.Outputs {
		location, err := r.deliver(ctx, engine.Hooks(), base, out, opts, folder)
		if err != nil {
			logger.Warn(LogMsgMessageFailed, zap.Int(LogFieldIndex, out.Index), zap.Error(err))
			report.Failures = append(report.Failures, RowFailure{Index: out.Index, Row: out.Row, Err: err})
			continue
		}
		report.Saved++
		report.Locations = append(report.Locations, location)
	}
	report.Failed = len(report.Failures)
	report.Duration = time.Since(start)

	logger.Info(LogMsgJobEnd,
		zap.Int(LogFieldRows, report.Total),
		zap.Int(LogFieldSaved, report.Saved),
		zap.Int(LogFieldFailed, report.Failed),
		zap.Duration(LogFieldDuration, report.Duration))

	if report.Total > 0 && report.Saved == 0 {
		return report, NewJobFailedError(batchID, report.Total)
	}
	return report, nil
}

// deliver composes and saves the message of one resolved row.
func (r *Runner) deliver(ctx context.Context, hooks *HookRegistry, base *HookData, out RowOutput, opts ComposeOptions, folder string) (string, error) {
	if out.Err != nil {
		return "", out.Err
	}

	msg, err := Compose(out.Fields, opts)
	if err != nil {
		return "", NewRowError(ErrMsgComposeFailed, out.Index, err)
	}

	data := base.ForRow(out.Index, out.Row).WithFields(&out.Fields).WithMessage(msg, folder)
	if err := hooks.Run(ctx, HookBeforeSave, data); err != nil {
		return "", NewRowError(ErrMsgSaveBeforeHook, out.Index, err)
	}

	location, saveErr := r.sink.Save(ctx, folder, msg)
	if saveErr == nil {
		data.SetMetadata(MetaKeyLocation, location)
	}
	if err := hooks.Run(ctx, HookAfterSave, data.WithError(saveErr)); err != nil {
		r.logger.Warn(LogMsgHookFailed, zap.String(LogFieldPoint, string(HookAfterSave)), zap.Error(err))
	}
	if saveErr != nil {
		return "", NewRowError(ErrMsgSinkWrite, out.Index, saveErr)
	}
	return location, nil
}

func (r *Runner) engineFor(cfg *JobConfig) (*Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	return New(append(cfg.EngineOptions(), WithLogger(r.logger))...)
}

// resolveTemplate loads the job's template, from the job's store when the
// runner has no storage of its own.
func (r *Runner) resolveTemplate(ctx context.Context, cfg *JobConfig) (*MergeTemplate, error) {
	storage := r.storage
	if storage == nil && cfg.TemplateRef != nil && cfg.Store != "" {
		opened, err := r.openStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		storage = opened
	}

	t, err := cfg.ResolveTemplate(ctx, storage)
	if err != nil {
		return nil, err
	}
	if cfg.TemplateRef != nil {
		r.logger.Debug(LogMsgTemplateLoaded,
			zap.String(LogFieldTemplate, cfg.TemplateRef.Name),
			zap.Int(MetaKeyVersion, cfg.TemplateRef.Version))
	}
	return t, nil
}

// openStore returns the cached storage for uri, opening it on first use.
func (r *Runner) openStore(uri string) (*CachedStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[uri]; ok {
		return store, nil
	}
	driver, conn := ParseStorageURI(uri)
	opened, err := OpenStorage(driver, conn)
	if err != nil {
		return nil, err
	}
	store := NewCachedStorage(opened, DefaultCacheConfig())
	r.stores[uri] = store
	return store, nil
}

// Close closes the stores the runner opened from job Store URIs. A Storage
// passed in RunnerConfig is left open.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for uri, store := range r.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.stores, uri)
	}
	return errors.Join(errs...)
}
