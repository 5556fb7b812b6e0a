package task

import "time"

// Options configures per-task behavior such as priority and deadline.
type Options struct {
	// Name is an optional human-readable label used in logs and journal
	// entries. It does not need to be unique.
	Name string

	// Class is the admission class this task is accounted against.
	// Empty means no class-level throttling applies.
	Class string

	// Priority determines dispatch ordering. Higher values dispatch first;
	// ties fall back to submission order. Any int is valid.
	Priority int

	// Deadline is the absolute time after which the task must not start.
	// Zero means no deadline.
	Deadline time.Time

	// Notify is invoked once with the task's terminal snapshot.
	Notify func(Snapshot)
}

func defaultOptions() Options {
	return Options{}
}

// Option is a functional option for configuring a task at submission.
type Option func(*Options)

// WithName sets a human-readable label for the task.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithClass assigns the task to an admission class for rate limiting and
// pending caps.
func WithClass(class string) Option {
	return func(o *Options) { o.Class = class }
}

// WithPriority sets the task priority. Higher values are dispatched first.
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// WithDeadline sets the absolute time after which the task must not start.
// A deadline already in the past causes the task to fail with a
// deadline-exceeded error instead of running.
func WithDeadline(t time.Time) Option {
	return func(o *Options) { o.Deadline = t }
}

// WithNotify registers a callback invoked once when the task reaches a
// terminal state. The callback runs on the worker goroutine and must not
// block.
func WithNotify(fn func(Snapshot)) Option {
	return func(o *Options) { o.Notify = fn }
}
