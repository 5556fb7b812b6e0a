package journal

import (
	"context"
	"time"

	"github.com/herdlabs/herd/task"
)

// Extension adapts a Sink to the engine's lifecycle hooks: every task
// transition becomes a journal entry. Append errors propagate to the
// extension registry, which logs them without blocking dispatch.
type Extension struct {
	sink Sink
}

// NewExtension creates a journal extension writing to sink.
func NewExtension(sink Sink) *Extension {
	return &Extension{sink: sink}
}

// Name implements ext.Extension.
func (x *Extension) Name() string { return "journal" }

// Sink returns the underlying sink.
func (x *Extension) Sink() Sink { return x.sink }

func (x *Extension) OnTaskEnqueued(ctx context.Context, snap task.Snapshot) error {
	return x.sink.Append(ctx, x.entry(snap, EventEnqueued))
}

func (x *Extension) OnTaskStarted(ctx context.Context, snap task.Snapshot) error {
	return x.sink.Append(ctx, x.entry(snap, EventStarted))
}

func (x *Extension) OnTaskCompleted(ctx context.Context, snap task.Snapshot, elapsed time.Duration) error {
	e := x.entry(snap, EventCompleted)
	e.ElapsedMS = elapsed.Milliseconds()
	return x.sink.Append(ctx, e)
}

func (x *Extension) OnTaskFailed(ctx context.Context, snap task.Snapshot, taskErr error) error {
	e := x.entry(snap, EventFailed)
	e.Error = taskErr.Error()
	return x.sink.Append(ctx, e)
}

func (x *Extension) OnTaskCancelled(ctx context.Context, snap task.Snapshot) error {
	return x.sink.Append(ctx, x.entry(snap, EventCancelled))
}

func (x *Extension) OnTaskExpired(ctx context.Context, snap task.Snapshot) error {
	e := x.entry(snap, EventTimedOut)
	e.Error = snap.LastError
	return x.sink.Append(ctx, e)
}

func (x *Extension) OnShutdown(_ context.Context) error {
	return x.sink.Close()
}

func (x *Extension) entry(snap task.Snapshot, ev Event) *Entry {
	return &Entry{
		TaskID:    snap.ID.String(),
		Name:      snap.Name,
		Class:     snap.Class,
		Event:     ev,
		Priority:  snap.Priority,
		Timestamp: time.Now().UTC(),
	}
}
