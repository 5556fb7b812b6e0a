// Package ext defines the extension system for Herd.
// Extensions are notified of lifecycle events (task enqueued, completed,
// cancelled, etc.) and can react to them — journaling, metrics, feeds.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/task"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Task lifecycle hooks
// ──────────────────────────────────────────────────

// TaskEnqueued is called after a task is accepted into the pending queue.
type TaskEnqueued interface {
	OnTaskEnqueued(ctx context.Context, snap task.Snapshot) error
}

// TaskStarted is called when a worker begins executing a task.
type TaskStarted interface {
	OnTaskStarted(ctx context.Context, snap task.Snapshot) error
}

// TaskCompleted is called after a task body returns nil.
type TaskCompleted interface {
	OnTaskCompleted(ctx context.Context, snap task.Snapshot, elapsed time.Duration) error
}

// TaskFailed is called when a task body returns an error or panics.
type TaskFailed interface {
	OnTaskFailed(ctx context.Context, snap task.Snapshot, err error) error
}

// TaskCancelled is called when a queued task is cancelled before dispatch.
type TaskCancelled interface {
	OnTaskCancelled(ctx context.Context, snap task.Snapshot) error
}

// TaskExpired is called when a task is skipped at dispatch time because
// its deadline had already passed.
type TaskExpired interface {
	OnTaskExpired(ctx context.Context, snap task.Snapshot) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// ScheduleFired is called when a schedule entry fires and submits a task.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, entryName string, taskID id.TaskID) error
}

// Shutdown is called during engine shutdown, after workers have stopped.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
