package herd

import (
	"errors"

	"github.com/herdlabs/herd/admission"
	"github.com/herdlabs/herd/worker"
)

// Sentinel errors surfaced by subsystems are re-exported here so callers
// can match them without importing the subsystem packages.
var (
	// ErrEngineClosed is returned by Submit after Shutdown has been called.
	ErrEngineClosed = worker.ErrClosed

	// ErrInvalidWorkerCount is returned by Start for a worker count below one.
	ErrInvalidWorkerCount = worker.ErrInvalidWorkerCount

	// ErrDeadlineExceeded marks tasks skipped at dispatch time because their
	// deadline had already passed. It is distinct from any error the task
	// body returns after observing its context deadline.
	ErrDeadlineExceeded = worker.ErrDeadlineExceeded

	// ErrThrottled is returned by Submit when an admission class rejects
	// the submission.
	ErrThrottled = admission.ErrThrottled
)

var (
	// ErrAlreadyStarted is returned by Start when the engine is running.
	ErrAlreadyStarted = errors.New("herd: engine already started")

	// ErrNotStarted is returned by Shutdown before Start.
	ErrNotStarted = errors.New("herd: engine not started")

	// ErrNilTask is returned by Submit for a nil task function.
	ErrNilTask = errors.New("herd: task function is nil")
)
