// Package herd provides a concurrent task execution engine for Go built
// on the Leader/Followers pattern: a fixed pool of workers rotates a
// single leader role, and the leader selects the next task while the
// other workers execute or wait. Dispatch of the next task never blocks
// behind the current task's body.
//
// Tasks are ordinary Go functions submitted with per-task options for
// priority, deadline, admission class, and terminal notification. Higher
// priority dispatches first; ties dispatch in submission order. Pending
// tasks can be cancelled up to the moment a worker picks them up; tasks
// whose deadline passes before dispatch fail without running.
//
// # Quick Start
//
//	e, err := herd.New(
//	    herd.WithWorkers(8),
//	    herd.WithExtension(journal.NewExtension(sink)),
//	)
//	if err != nil { ... }
//	if err := e.Start(ctx); err != nil { ... }
//
//	taskID, err := e.Submit(func(ctx context.Context) error {
//	    return processOrder(ctx, order)
//	}, task.WithPriority(5), task.WithDeadline(time.Now().Add(time.Minute)))
//
// # Architecture
//
// The engine composes a worker coordinator (queue, cancellation registry,
// leader rotation), an admission manager (per-class rate limits and
// in-flight caps), a cron scheduler, a middleware chain around every task
// body, and an extension registry that fans lifecycle events out to
// journals, metrics, and feeds.
//
// All task IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package herd
