package herd

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/herdlabs/herd/admission"
	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/middleware"
	"github.com/herdlabs/herd/worker"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets the structured logger for the engine and its subsystems.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = l
		return nil
	}
}

// WithConfig replaces the engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) error {
		e.config = cfg
		return nil
	}
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return ErrInvalidWorkerCount
		}
		e.config.Workers = n
		return nil
	}
}

// WithExtension registers a lifecycle extension. Extensions receive task
// and schedule events; hook errors are logged and never affect dispatch.
func WithExtension(x ext.Extension) Option {
	return func(e *Engine) error {
		e.exts = append(e.exts, x)
		return nil
	}
}

// WithMiddleware appends middleware to the execution chain, after the
// built-in recover, tracing, metrics, logging, and deadline layers.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) error {
		e.userMW = append(e.userMW, mws...)
		return nil
	}
}

// WithAdmission enables class-based admission control. Submissions in a
// configured class are rejected with ErrThrottled when the class is over
// its in-flight cap or rate limit. Tasks in unconfigured classes are
// always admitted.
func WithAdmission(classes ...admission.Class) Option {
	return func(e *Engine) error {
		e.admission = admission.NewManager(classes...)
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used by the
// built-in tracing middleware. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) error {
		e.tracerProvider = tp
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used by the
// built-in metrics middleware. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) error {
		e.meterProvider = mp
		return nil
	}
}

// WithRoleObserver installs a callback invoked on every leader/follower
// transition. Intended for instrumentation and tests.
func WithRoleObserver(fn worker.RoleObserver) Option {
	return func(e *Engine) error {
		e.roleObserver = fn
		return nil
	}
}
