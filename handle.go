package herd

import (
	"context"
	"sync"

	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/task"
)

// Handle tracks one submitted task to its terminal state. It resolves
// exactly once, whether the task completed, failed, was cancelled, or was
// discarded at shutdown.
type Handle struct {
	id   id.TaskID
	done chan struct{}

	mu   sync.Mutex
	snap task.Snapshot
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// ID returns the task's id.
func (h *Handle) ID() id.TaskID { return h.id }

// Done returns a channel closed when the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task reaches a terminal state or the context
// expires, and returns the terminal snapshot. Inspect Snapshot.State and
// Snapshot.LastError to distinguish outcomes.
func (h *Handle) Wait(ctx context.Context) (task.Snapshot, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.snap, nil
	case <-ctx.Done():
		return task.Snapshot{}, ctx.Err()
	}
}

// resolve records the terminal snapshot. Called from the task's notify
// callback, which the coordinator fires exactly once.
func (h *Handle) resolve(snap task.Snapshot) {
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
	close(h.done)
}
