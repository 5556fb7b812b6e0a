package middleware

import (
	"context"
	"log/slog"

	"github.com/herdlabs/herd/task"
)

// Deadline returns middleware that propagates the task's absolute deadline
// into the execution context. If the task has a non-zero Deadline, a
// context.WithDeadline wraps the handler call. The deadline is cooperative:
// a running body is never preempted, it only observes ctx.Done and decides
// for itself.
func Deadline(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		if !t.Deadline.IsZero() {
			logger.Debug("task deadline set",
				slog.String("task_id", t.ID.String()),
				slog.Time("deadline", t.Deadline),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithDeadline(ctx, t.Deadline)
			defer cancel()
		}
		return next(ctx)
	}
}
