package workflow

import (
	"log/slog"
	"sync"
	"time"

	"docintake/internal/config"
	"docintake/internal/logging"
	"docintake/internal/notifications"
	"docintake/internal/runstate"
	"docintake/internal/stage"
)

// Orchestrator drives pipeline runs.
type Orchestrator struct {
	cfg        *config.Config
	stages     StageSet
	router     Router
	logger     *slog.Logger
	recorder   RunRecorder
	registrar  DocumentRegistrar
	dispatcher notifications.Dispatcher
	state      *runstate.Store
	locks      *runLocks
	now        func() time.Time

	mu        sync.RWMutex
	callbacks []StageCallback
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithRecorder persists run audits.
func WithRecorder(recorder RunRecorder) Option {
	return func(o *Orchestrator) { o.recorder = recorder }
}

// WithRegistrar registers accepted documents.
func WithRegistrar(registrar DocumentRegistrar) Option {
	return func(o *Orchestrator) { o.registrar = registrar }
}

// WithDispatcher overrides the notification dispatcher built from config.
func WithDispatcher(dispatcher notifications.Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = dispatcher }
}

// WithState mirrors every transition into store.
func WithState(store *runstate.Store) Option {
	return func(o *Orchestrator) { o.state = store }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an orchestrator.
func New(cfg *config.Config, stages StageSet, router Router, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		stages: stages,
		router: router,
		logger: logging.NewComponentLogger(logger, "workflow"),
		locks:  newRunLocks(cfg.Paths.LockDir),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dispatcher == nil {
		o.dispatcher = notifications.NewDispatcher(cfg, logger)
	}
	for _, exec := range []any{stages.Denoiser, stages.Recognizer, stages.Duplicates, stages.Suggester, stages.Watermarker} {
		if aware, ok := exec.(stage.LoggerAware); ok {
			aware.SetLogger(logger)
		}
	}
	return o
}

// OnStageChange registers a progress callback.
func (o *Orchestrator) OnStageChange(cb StageCallback) {
	if cb == nil {
		return
	}
	o.mu.Lock()
	o.callbacks = append(o.callbacks, cb)
	o.mu.Unlock()
}

// Active reports whether a run for documentID is in flight in this process.
func (o *Orchestrator) Active(documentID string) bool {
	return o.locks.active(documentID)
}

func (o *Orchestrator) emit(event StageEvent) {
	o.mu.RLock()
	callbacks := append([]StageCallback(nil), o.callbacks...)
	o.mu.RUnlock()
	for _, cb := range callbacks {
		cb(event)
	}
}

func (o *Orchestrator) dispatch(action runstate.Action) {
	if o.state == nil {
		return
	}
	if err := o.state.Dispatch(action); err != nil {
		o.logger.Debug("state transition rejected", logging.Error(err))
	}
}
