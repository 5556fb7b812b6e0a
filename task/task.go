// Package task defines the unit of work executed by the herd engine:
// an identifiable, cancellable, optionally deadline-bound closure with a
// strictly forward-moving lifecycle.
package task

import (
	"context"
	"time"

	"github.com/herdlabs/herd/id"
)

// State represents the lifecycle state of a task.
type State string

const (
	// StatePending means the task is queued and waiting for a leader to
	// dispatch it.
	StatePending State = "pending"
	// StateRunning means a worker is currently executing the task body.
	StateRunning State = "running"
	// StateCompleted means the task body returned without error.
	StateCompleted State = "completed"
	// StateFailed means the task body returned an error, panicked, or was
	// skipped because its deadline had already passed.
	StateFailed State = "failed"
	// StateCancelled means the task was cancelled before it started.
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is an end state. A terminal task never
// transitions again.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Func is the task body. It is invoked at most once. The context carries the
// task's deadline (when one was set) so long-running bodies can cooperate;
// the engine never preempts a running body.
type Func func(ctx context.Context) error

// Task is a unit of work owned by the coordinator. Identity, priority,
// sequence, and deadline are immutable once created; State, LastError, and
// the timestamps are mutated only under the coordinator's lock.
type Task struct {
	ID       id.TaskID
	Name     string
	Class    string
	Priority int

	// Sequence is the insertion-order counter assigned at enqueue time.
	// It breaks priority ties: earlier submissions dispatch first.
	Sequence uint64

	// Deadline, when non-zero, is the absolute time after which the task
	// must not start. It does not bound execution time.
	Deadline time.Time

	State     State
	LastError string

	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	fn     Func
	notify func(Snapshot)
}

// New creates a Pending task with the given body and options. Sequence is
// zero until the coordinator assigns it at enqueue time.
func New(fn Func, opts ...Option) *Task {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Task{
		ID:         id.NewTaskID(),
		Name:       o.Name,
		Class:      o.Class,
		Priority:   o.Priority,
		Deadline:   o.Deadline,
		State:      StatePending,
		EnqueuedAt: time.Now().UTC(),
		fn:         fn,
		notify:     o.Notify,
	}
}

// Fn returns the task body.
func (t *Task) Fn() Func { return t.fn }

// Notify invokes the terminal-state callback, if one was registered,
// with a snapshot of the task. Called exactly once, outside the
// coordinator's lock, after the task reaches a terminal state.
func (t *Task) Notify() {
	if t.notify != nil {
		t.notify(t.Snapshot())
	}
}

// Snapshot is an immutable copy of a task's observable fields, safe to hand
// to callers without exposing coordinator-owned state.
type Snapshot struct {
	ID          id.TaskID
	Name        string
	Class       string
	Priority    int
	Sequence    uint64
	Deadline    time.Time
	State       State
	LastError   string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Snapshot returns a copy of the task's observable fields. The caller must
// hold the coordinator's lock unless the task is already terminal.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		ID:          t.ID,
		Name:        t.Name,
		Class:       t.Class,
		Priority:    t.Priority,
		Sequence:    t.Sequence,
		Deadline:    t.Deadline,
		State:       t.State,
		LastError:   t.LastError,
		EnqueuedAt:  t.EnqueuedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}
