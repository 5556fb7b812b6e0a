package observability_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/observability"
	"github.com/herdlabs/herd/task"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func newTestSnapshot() task.Snapshot {
	return task.New(func(context.Context) error { return nil },
		task.WithName("send-email"),
		task.WithClass("default"),
	).Snapshot()
}

// counterValue collects from the reader and sums the named Int64 counter.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name != name {
				continue
			}
			sum, ok := sm.Metrics[i].Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64] data type", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_TaskEnqueued(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnTaskEnqueued(context.Background(), newTestSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.task.enqueued"); got != 1 {
		t.Errorf("herd.task.enqueued: want 1, got %d", got)
	}
}

func TestMetricsExtension_TaskCompleted(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnTaskCompleted(context.Background(), newTestSnapshot(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.task.completed"); got != 1 {
		t.Errorf("herd.task.completed: want 1, got %d", got)
	}
}

func TestMetricsExtension_TaskFailed(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnTaskFailed(context.Background(), newTestSnapshot(), errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.task.failed"); got != 1 {
		t.Errorf("herd.task.failed: want 1, got %d", got)
	}
}

func TestMetricsExtension_TaskCancelled(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnTaskCancelled(context.Background(), newTestSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.task.cancelled"); got != 1 {
		t.Errorf("herd.task.cancelled: want 1, got %d", got)
	}
}

func TestMetricsExtension_TaskExpired(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnTaskExpired(context.Background(), newTestSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.task.expired"); got != 1 {
		t.Errorf("herd.task.expired: want 1, got %d", got)
	}
}

func TestMetricsExtension_ScheduleFired(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnScheduleFired(context.Background(), "daily-cleanup", id.NewTaskID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counterValue(t, reader, "herd.schedule.fired"); got != 1 {
		t.Errorf("herd.schedule.fired: want 1, got %d", got)
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := ext.NewRegistry(logger)
	reg.Register(e)

	ctx := context.Background()
	snap := newTestSnapshot()

	reg.EmitTaskEnqueued(ctx, snap)
	reg.EmitTaskCompleted(ctx, snap, 50*time.Millisecond)
	reg.EmitTaskFailed(ctx, snap, errors.New("fail"))
	reg.EmitTaskCancelled(ctx, snap)
	reg.EmitTaskExpired(ctx, snap)
	reg.EmitScheduleFired(ctx, "hourly", id.NewTaskID())

	for _, name := range []string{
		"herd.task.enqueued",
		"herd.task.completed",
		"herd.task.failed",
		"herd.task.cancelled",
		"herd.task.expired",
		"herd.schedule.fired",
	} {
		if got := counterValue(t, reader, name); got != 1 {
			t.Errorf("%s: want 1, got %d", name, got)
		}
	}
}
