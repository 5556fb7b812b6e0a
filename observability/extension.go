package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/task"
)

// meterName is the instrumentation scope name for herd metrics.
const meterName = "github.com/herdlabs/herd"

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.TaskEnqueued  = (*MetricsExtension)(nil)
	_ ext.TaskCompleted = (*MetricsExtension)(nil)
	_ ext.TaskFailed    = (*MetricsExtension)(nil)
	_ ext.TaskCancelled = (*MetricsExtension)(nil)
	_ ext.TaskExpired   = (*MetricsExtension)(nil)
	_ ext.ScheduleFired = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters via OpenTelemetry.
// Register it on the engine to automatically track enqueue rates,
// completion counts, failure rates, cancellations, deadline expiries,
// and schedule fires, each attributed by task class.
type MetricsExtension struct {
	taskEnqueued  metric.Int64Counter
	taskCompleted metric.Int64Counter
	taskFailed    metric.Int64Counter
	taskCancelled metric.Int64Counter
	taskExpired   metric.Int64Counter
	scheduleFired metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. Without a configured provider the instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. This variant allows injecting a specific MeterProvider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		_ = err // noop fallback guaranteed by OTel API contract
		return c
	}
	return &MetricsExtension{
		taskEnqueued:  counter("herd.task.enqueued", "Tasks accepted into the pending queue"),
		taskCompleted: counter("herd.task.completed", "Tasks whose body returned nil"),
		taskFailed:    counter("herd.task.failed", "Tasks whose body returned an error or panicked"),
		taskCancelled: counter("herd.task.cancelled", "Tasks cancelled before dispatch"),
		taskExpired:   counter("herd.task.expired", "Tasks skipped because their deadline passed"),
		scheduleFired: counter("herd.schedule.fired", "Schedule entries fired"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Task lifecycle hooks ────────────────────────────

// OnTaskEnqueued implements ext.TaskEnqueued.
func (m *MetricsExtension) OnTaskEnqueued(ctx context.Context, snap task.Snapshot) error {
	m.taskEnqueued.Add(ctx, 1, classAttr(snap))
	return nil
}

// OnTaskCompleted implements ext.TaskCompleted.
func (m *MetricsExtension) OnTaskCompleted(ctx context.Context, snap task.Snapshot, _ time.Duration) error {
	m.taskCompleted.Add(ctx, 1, classAttr(snap))
	return nil
}

// OnTaskFailed implements ext.TaskFailed.
func (m *MetricsExtension) OnTaskFailed(ctx context.Context, snap task.Snapshot, _ error) error {
	m.taskFailed.Add(ctx, 1, classAttr(snap))
	return nil
}

// OnTaskCancelled implements ext.TaskCancelled.
func (m *MetricsExtension) OnTaskCancelled(ctx context.Context, snap task.Snapshot) error {
	m.taskCancelled.Add(ctx, 1, classAttr(snap))
	return nil
}

// OnTaskExpired implements ext.TaskExpired.
func (m *MetricsExtension) OnTaskExpired(ctx context.Context, snap task.Snapshot) error {
	m.taskExpired.Add(ctx, 1, classAttr(snap))
	return nil
}

// ── Schedule lifecycle hooks ────────────────────────

// OnScheduleFired implements ext.ScheduleFired.
func (m *MetricsExtension) OnScheduleFired(ctx context.Context, entryName string, _ id.TaskID) error {
	m.scheduleFired.Add(ctx, 1, metric.WithAttributes(attribute.String("entry", entryName)))
	return nil
}

func classAttr(snap task.Snapshot) metric.AddOption {
	return metric.WithAttributes(attribute.String("class", snap.Class))
}
