package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/middleware"
	"github.com/herdlabs/herd/task"
	"github.com/herdlabs/herd/worker"
)

// lifecycleHook records started/completed/failed notifications.
type lifecycleHook struct {
	started   int
	completed int
	failed    int
	lastErr   error
	elapsed   time.Duration
}

func (h *lifecycleHook) Name() string { return "lifecycle-hook" }

func (h *lifecycleHook) OnTaskStarted(_ context.Context, _ task.Snapshot) error {
	h.started++
	return nil
}

func (h *lifecycleHook) OnTaskCompleted(_ context.Context, _ task.Snapshot, elapsed time.Duration) error {
	h.completed++
	h.elapsed = elapsed
	return nil
}

func (h *lifecycleHook) OnTaskFailed(_ context.Context, _ task.Snapshot, err error) error {
	h.failed++
	h.lastErr = err
	return nil
}

func TestExecutorEmitsLifecycleEvents(t *testing.T) {
	logger := discardLogger()
	registry := ext.NewRegistry(logger)
	hook := &lifecycleHook{}
	registry.Register(hook)
	executor := worker.NewExecutor(registry, logger)

	tk := task.New(func(_ context.Context) error { return nil })
	if err := executor.Execute(context.Background(), tk); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if hook.started != 1 || hook.completed != 1 || hook.failed != 0 {
		t.Errorf("hook counts started/completed/failed = %d/%d/%d, want 1/1/0",
			hook.started, hook.completed, hook.failed)
	}
}

func TestExecutorEmitsFailedOnError(t *testing.T) {
	logger := discardLogger()
	registry := ext.NewRegistry(logger)
	hook := &lifecycleHook{}
	registry.Register(hook)
	executor := worker.NewExecutor(registry, logger)

	want := errors.New("body error")
	tk := task.New(func(_ context.Context) error { return want })

	err := executor.Execute(context.Background(), tk)
	if !errors.Is(err, want) {
		t.Fatalf("Execute = %v, want %v", err, want)
	}
	if hook.failed != 1 || hook.completed != 0 {
		t.Errorf("hook counts failed/completed = %d/%d, want 1/0", hook.failed, hook.completed)
	}
	if !errors.Is(hook.lastErr, want) {
		t.Errorf("hook error = %v, want %v", hook.lastErr, want)
	}
}

func TestExecutorCatchesPanicWithoutRecoverMiddleware(t *testing.T) {
	// Even with an empty middleware chain the dispatch boundary converts a
	// panic into an error.
	logger := discardLogger()
	registry := ext.NewRegistry(logger)
	hook := &lifecycleHook{}
	registry.Register(hook)
	executor := worker.NewExecutor(registry, logger)

	tk := task.New(func(_ context.Context) error { panic("kaboom") }, task.WithName("panicky"))

	err := executor.Execute(context.Background(), tk)
	if err == nil {
		t.Fatal("expected an error from the panic backstop")
	}
	if !strings.Contains(err.Error(), "panic in task panicky") {
		t.Errorf("error = %q, want panic conversion", err)
	}
	if hook.failed != 1 {
		t.Errorf("hook.failed = %d, want 1", hook.failed)
	}
}

func TestExecutorRunsMiddlewareChain(t *testing.T) {
	logger := discardLogger()
	registry := ext.NewRegistry(logger)

	var order []string
	outer := func(ctx context.Context, _ *task.Task, next middleware.Handler) error {
		order = append(order, "outer")
		return next(ctx)
	}
	inner := func(ctx context.Context, _ *task.Task, next middleware.Handler) error {
		order = append(order, "inner")
		return next(ctx)
	}
	executor := worker.NewExecutor(registry, logger, outer, inner)

	tk := task.New(func(_ context.Context) error {
		order = append(order, "body")
		return nil
	})
	if err := executor.Execute(context.Background(), tk); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"outer", "inner", "body"}
	if len(order) != len(want) {
		t.Fatalf("call order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
