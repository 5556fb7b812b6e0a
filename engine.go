package herd

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/herdlabs/herd/admission"
	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/middleware"
	"github.com/herdlabs/herd/sched"
	"github.com/herdlabs/herd/task"
	"github.com/herdlabs/herd/worker"
)

// instrumentationName is the scope name for engine-created OTel instruments.
const instrumentationName = "github.com/herdlabs/herd"

// Engine is the public facade over the worker coordinator, admission
// control, the scheduler, and the extension registry.
//
// Create one with New() and functional options, Start it, then Submit
// task functions. Tasks dispatch in priority order (ties in submission
// order); exactly one worker at a time selects the next task while the
// others execute or wait.
type Engine struct {
	config Config
	logger *slog.Logger

	extensions  *ext.Registry
	admission   *admission.Manager
	coordinator *worker.Coordinator
	scheduler   *sched.Scheduler

	// Collected by options, consumed once in New.
	exts           []ext.Extension
	userMW         []middleware.Middleware
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	roleObserver   worker.RoleObserver

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.extensions = ext.NewRegistry(e.logger)
	if e.admission != nil {
		// Return admission slots when tasks reach a terminal state.
		e.extensions.Register(&releaseExtension{admission: e.admission})
	}
	for _, x := range e.exts {
		e.extensions.Register(x)
	}

	tracing := middleware.Tracing()
	if e.tracerProvider != nil {
		tracing = middleware.TracingWithTracer(e.tracerProvider.Tracer(instrumentationName))
	}
	metrics := middleware.Metrics()
	if e.meterProvider != nil {
		metrics = middleware.MetricsWithMeter(e.meterProvider.Meter(instrumentationName))
	}

	mws := []middleware.Middleware{
		middleware.Recover(e.logger),
		tracing,
		metrics,
		middleware.Logging(e.logger),
		middleware.Deadline(e.logger),
	}
	mws = append(mws, e.userMW...)

	executor := worker.NewExecutor(e.extensions, e.logger, mws...)

	var copts []worker.CoordinatorOption
	if e.roleObserver != nil {
		copts = append(copts, worker.WithRoleObserver(e.roleObserver))
	}
	e.coordinator = worker.NewCoordinator(executor, e.extensions, e.logger, copts...)

	tick := e.config.SchedulerTick
	if tick <= 0 {
		tick = DefaultConfig().SchedulerTick
	}
	e.scheduler = sched.NewScheduler(e, e.extensions, e.logger,
		sched.WithTickInterval(tick))

	return e, nil
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config { return e.config }

// Extensions returns the extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Scheduler returns the engine's scheduler for registering recurring tasks.
func (e *Engine) Scheduler() *sched.Scheduler { return e.scheduler }

// Start spawns the worker pool and the scheduler. It returns immediately;
// workers begin draining anything submitted before Start.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.started {
		return ErrAlreadyStarted
	}
	if e.config.Workers < 1 {
		return ErrInvalidWorkerCount
	}

	if err := e.coordinator.Start(ctx, e.config.Workers); err != nil {
		return err
	}
	if err := e.scheduler.Start(ctx); err != nil {
		return err
	}

	e.started = true
	e.logger.Info("engine started", slog.Int("workers", e.config.Workers))
	return nil
}

// Submit enqueues a task function and returns its id. It never blocks on
// task execution. Returns ErrNilTask for a nil function, ErrThrottled when
// the task's admission class rejects it, and ErrEngineClosed after Shutdown.
func (e *Engine) Submit(fn task.Func, opts ...task.Option) (id.TaskID, error) {
	if fn == nil {
		return id.TaskID{}, ErrNilTask
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return id.TaskID{}, ErrEngineClosed
	}

	t := task.New(fn, opts...)

	if e.admission != nil {
		if err := e.admission.Admit(t.Class); err != nil {
			return id.TaskID{}, err
		}
	}

	if err := e.coordinator.Submit(t); err != nil {
		if e.admission != nil {
			e.admission.Release(t.Class)
		}
		return id.TaskID{}, err
	}
	return t.ID, nil
}

// SubmitHandle enqueues a task function and returns a Handle that resolves
// with the task's terminal snapshot. A notify callback set through opts
// still fires, before the handle resolves.
func (e *Engine) SubmitHandle(fn task.Func, opts ...task.Option) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	var o task.Options
	for _, opt := range opts {
		opt(&o)
	}
	userNotify := o.Notify

	h := newHandle()
	opts = append(opts, task.WithNotify(func(snap task.Snapshot) {
		if userNotify != nil {
			userNotify(snap)
		}
		h.resolve(snap)
	}))

	taskID, err := e.Submit(fn, opts...)
	if err != nil {
		return nil, err
	}
	h.id = taskID
	return h, nil
}

// Cancel marks a pending task cancelled and reports whether the
// cancellation had effect. Unknown ids, running tasks, and terminal tasks
// report false; losing the race to a starting task is not an error.
func (e *Engine) Cancel(taskID id.TaskID) bool {
	return e.coordinator.Cancel(taskID)
}

// Task returns a snapshot of a non-terminal task.
func (e *Engine) Task(taskID id.TaskID) (task.Snapshot, bool) {
	return e.coordinator.Task(taskID)
}

// Stats returns a point-in-time view of queue and execution counters.
func (e *Engine) Stats() worker.Stats {
	return e.coordinator.Stats()
}

// Schedule registers a recurring task definition.
func (e *Engine) Schedule(def sched.Definition) error {
	return e.scheduler.Register(def)
}

// Shutdown stops accepting submissions and waits for workers to exit or
// the context to expire. With drain=true, queued tasks run to completion
// first; with drain=false, queued tasks are discarded as Cancelled and
// never executed. Running tasks always finish. Safe to call repeatedly.
func (e *Engine) Shutdown(ctx context.Context, drain bool) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return ErrNotStarted
	}
	alreadyClosed := e.closed
	e.closed = true
	e.mu.Unlock()

	if !alreadyClosed {
		if err := e.scheduler.Stop(ctx); err != nil {
			e.logger.Error("scheduler stop error", slog.String("error", err.Error()))
		}
	}

	err := e.coordinator.Shutdown(ctx, drain)

	if !alreadyClosed {
		e.extensions.EmitShutdown(ctx)
		e.logger.Info("engine stopped", slog.Bool("drain", drain))
	}
	return err
}

// Close drains and shuts down with the configured ShutdownTimeout.
func (e *Engine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx, true)
}
