package queue

import (
	"sync"

	"github.com/herdlabs/herd/id"
)

// Liveness is the cancellation registry: a map from task identity to
// whether the task has not yet been cancelled. The engine writes on cancel;
// workers read immediately before executing a popped task. It carries its
// own lock so the pre-execution liveness check does not need to re-take the
// coordinator's lock after the leadership hand-off.
type Liveness struct {
	mu   sync.RWMutex
	live map[string]struct{}
}

// NewLiveness returns an empty registry.
func NewLiveness() *Liveness {
	return &Liveness{live: make(map[string]struct{})}
}

// Register marks a newly submitted task live. Called within Submit, before
// the task is visible to any worker.
func (l *Liveness) Register(taskID id.TaskID) {
	l.mu.Lock()
	l.live[taskID.String()] = struct{}{}
	l.mu.Unlock()
}

// Cancel marks the task dead if it is currently live and reports whether
// the cancellation had effect. Returns false for unknown or already
// terminal tasks.
func (l *Liveness) Cancel(taskID id.TaskID) bool {
	key := taskID.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.live[key]; !ok {
		return false
	}
	delete(l.live, key)
	return true
}

// IsLive reports whether the task has not been cancelled or forgotten.
// This is the second cancellation checkpoint: a task may be cancelled in
// the window between being popped and being executed.
func (l *Liveness) IsLive(taskID id.TaskID) bool {
	l.mu.RLock()
	_, ok := l.live[taskID.String()]
	l.mu.RUnlock()
	return ok
}

// Forget removes the entry once the task reaches a terminal state, bounding
// the registry's memory to the set of non-terminal tasks.
func (l *Liveness) Forget(taskID id.TaskID) {
	l.mu.Lock()
	delete(l.live, taskID.String())
	l.mu.Unlock()
}

// Len returns the number of live entries.
func (l *Liveness) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.live)
}
