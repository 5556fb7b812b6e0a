package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/herdlabs/herd/task"
)

// tracerName is the instrumentation scope name for herd tracing.
const tracerName = "github.com/herdlabs/herd"

// Tracing returns middleware that wraps task execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: herd.task.id, herd.task.name, herd.task.class,
// herd.task.priority, herd.task.sequence.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		ctx, span := tracer.Start(ctx, "herd.task.execute",
			trace.WithAttributes(
				attribute.String("herd.task.id", t.ID.String()),
				attribute.String("herd.task.name", t.Name),
				attribute.String("herd.task.class", t.Class),
				attribute.Int("herd.task.priority", t.Priority),
				attribute.Int64("herd.task.sequence", int64(t.Sequence)),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
