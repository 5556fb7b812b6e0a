package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/middleware"
	"github.com/herdlabs/herd/task"
)

// Executor runs a single task body through the middleware chain and emits
// lifecycle events. State transitions stay with the Coordinator; the
// executor only observes the task.
type Executor struct {
	extensions *ext.Registry
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given middleware chain.
func NewExecutor(
	extensions *ext.Registry,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		extensions: extensions,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs the task body through the middleware chain.
// On success it emits TaskCompleted; on error, TaskFailed.
//
// A panic escaping the chain is caught here, at the dispatch boundary, and
// converted to an error so a misbehaving body can never kill its worker or
// break the leader rotation. The recover middleware normally converts
// panics earlier with a logged stack trace; this is the hard backstop.
func (e *Executor) Execute(ctx context.Context, t *task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", t.Name, r)
			e.extensions.EmitTaskFailed(ctx, t.Snapshot(), err)
		}
	}()

	e.extensions.EmitTaskStarted(ctx, t.Snapshot())

	start := time.Now()

	// The terminal handler invokes the task body exactly once.
	terminal := func(ctx context.Context) error {
		return t.Fn()(ctx)
	}

	err = e.mw(ctx, t, terminal)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Debug("task execution failed",
			slog.String("task_id", t.ID.String()),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()),
		)
		e.extensions.EmitTaskFailed(ctx, t.Snapshot(), err)
		return err
	}

	e.extensions.EmitTaskCompleted(ctx, t.Snapshot(), elapsed)
	return nil
}
