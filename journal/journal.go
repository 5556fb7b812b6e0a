// Package journal records the engine's task lifecycle as structured
// entries appended to a pluggable sink. The engine emits entries through
// the journal Extension; sinks decide durability (in-memory ring, Redis
// stream, Postgres table).
package journal

import (
	"context"
	"time"
)

// Event identifies what happened to a task.
type Event string

const (
	EventEnqueued  Event = "enqueued"
	EventStarted   Event = "started"
	EventCompleted Event = "completed"
	EventFailed    Event = "failed"
	EventCancelled Event = "cancelled"
	EventTimedOut  Event = "timed_out"
)

// Entry is one journal record.
type Entry struct {
	TaskID    string    `json:"task_id" msgpack:"task_id"`
	Name      string    `json:"name,omitempty" msgpack:"name,omitempty"`
	Class     string    `json:"class,omitempty" msgpack:"class,omitempty"`
	Event     Event     `json:"event" msgpack:"event"`
	Priority  int       `json:"priority" msgpack:"priority"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty" msgpack:"elapsed_ms,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Sink persists journal entries. Implementations must be safe for
// concurrent use; Append is called from worker goroutines.
type Sink interface {
	// Append records one entry.
	Append(ctx context.Context, e *Entry) error

	// Close releases the sink's resources.
	Close() error
}
