package herd

import "time"

// Config holds configuration for the Engine.
type Config struct {
	// Workers is the number of worker goroutines in the pool. Exactly one
	// of them holds the leader role at any instant.
	Workers int

	// ShutdownTimeout bounds how long Close waits for workers to finish.
	// Shutdown callers supply their own context instead.
	ShutdownTimeout time.Duration

	// SchedulerTick is how often the scheduler checks for due entries.
	SchedulerTick time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		ShutdownTimeout: 30 * time.Second,
		SchedulerTick:   1 * time.Second,
	}
}
