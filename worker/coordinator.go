// Package worker provides the task execution core — a Coordinator that
// owns the pending queue and cancellation registry and rotates a single
// leader role across a fixed pool of worker goroutines, and an Executor
// that runs one task body through the middleware chain.
//
// The coordinator implements the Leader/Followers pattern: exactly one
// worker at a time is the leader, authorized to pop the next task. Before
// executing a popped task the outgoing leader promotes a waiting follower,
// so dispatch latency for the next task never waits on the current task's
// body.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/herdlabs/herd/ext"
	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/queue"
	"github.com/herdlabs/herd/task"
)

var (
	// ErrClosed is returned by Submit after Shutdown has been called.
	ErrClosed = errors.New("herd: engine closed")

	// ErrInvalidWorkerCount is returned by Start for a worker count
	// below one.
	ErrInvalidWorkerCount = errors.New("herd: worker count must be at least 1")

	// ErrDeadlineExceeded is recorded against tasks skipped at dispatch
	// time because their deadline had already passed. It is distinct from
	// any error the task body returns.
	ErrDeadlineExceeded = errors.New("herd: task deadline exceeded before start")
)

// Role is the position a worker currently holds in the pool.
type Role string

const (
	// RoleLeader marks the single worker authorized to pop the next task.
	RoleLeader Role = "leader"
	// RoleFollower marks a worker waiting to be promoted.
	RoleFollower Role = "follower"
)

// RoleObserver is called on every role transition. It runs under the
// coordinator's lock so observations are totally ordered with respect to
// the transitions themselves; it must be fast and must not call back into
// the coordinator.
type RoleObserver func(workerID id.WorkerID, role Role)

// Stats is a point-in-time view of coordinator state.
type Stats struct {
	// Pending and Running count non-terminal tasks.
	Pending int
	Running int

	// Cumulative terminal counts since Start.
	Completed uint64
	Failed    uint64
	Cancelled uint64
	Expired   uint64
}

// Coordinator owns the priority queue and the cancellation registry, and
// enforces the single-leader invariant across its worker goroutines.
//
// All queue and registry mutations happen under one coordinator-wide lock;
// task bodies run outside it so a slow task never stalls dispatch of the
// next one.
type Coordinator struct {
	executor   *Executor
	extensions *ext.Registry
	logger     *slog.Logger

	mu         sync.Mutex
	workCond   *sync.Cond // queue became non-empty, or shutdown
	leaderCond *sync.Cond // leadership became free
	hasLeader  bool

	queue    *queue.PriorityQueue
	liveness *queue.Liveness
	tasks    map[string]*task.Task // non-terminal tasks by id
	seq      uint64

	running   bool
	closed    bool
	runCount  int
	completed uint64
	failed    uint64
	cancelled uint64
	expired   uint64

	onRole RoleObserver

	wg sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRoleObserver installs a callback invoked on every leader/follower
// transition. Intended for instrumentation and tests.
func WithRoleObserver(fn RoleObserver) CoordinatorOption {
	return func(c *Coordinator) { c.onRole = fn }
}

// NewCoordinator creates a coordinator. Workers are not spawned until Start.
func NewCoordinator(
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		executor:   executor,
		extensions: extensions,
		logger:     logger,
		queue:      queue.NewPriorityQueue(),
		liveness:   queue.NewLiveness(),
		tasks:      make(map[string]*task.Task),
	}
	c.workCond = sync.NewCond(&c.mu)
	c.leaderCond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start spawns n worker goroutines. One of them will win the initial
// leadership race; the rest wait as followers. It returns immediately.
func (c *Coordinator) Start(_ context.Context, n int) error {
	if n < 1 {
		return ErrInvalidWorkerCount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	c.running = true

	c.logger.Info("coordinator starting", slog.Int("workers", n))

	for range n {
		workerID := id.NewWorkerID()
		c.wg.Add(1)
		go c.run(workerID)
	}
	return nil
}

// Submit assigns the task's sequence number, registers it live, inserts it
// into the queue, and wakes the leader. It never blocks on task execution.
// Returns ErrClosed after Shutdown.
func (c *Coordinator) Submit(t *task.Task) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.seq++
	t.Sequence = c.seq
	c.liveness.Register(t.ID)
	c.tasks[t.ID.String()] = t
	c.queue.Insert(t)
	snap := t.Snapshot()
	c.mu.Unlock()

	c.workCond.Signal()
	c.extensions.EmitTaskEnqueued(context.Background(), snap)
	return nil
}

// Cancel marks a pending task cancelled and reports whether the
// cancellation had effect. It returns false for unknown ids and for tasks
// already running or terminal — cancellation is best-effort by design: a
// task past its liveness check runs to completion.
func (c *Coordinator) Cancel(taskID id.TaskID) bool {
	c.mu.Lock()
	t, ok := c.tasks[taskID.String()]
	if !ok || t.State != task.StatePending {
		c.mu.Unlock()
		return false
	}
	c.liveness.Cancel(taskID)
	c.terminalLocked(t, task.StateCancelled, nil)
	c.cancelled++
	snap := t.Snapshot()
	c.mu.Unlock()

	t.Notify()
	c.extensions.EmitTaskCancelled(context.Background(), snap)
	return true
}

// Task returns a snapshot of a non-terminal task. Terminal tasks are
// evicted and report ok=false.
func (c *Coordinator) Task(taskID id.TaskID) (task.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[taskID.String()]
	if !ok {
		return task.Snapshot{}, false
	}
	return t.Snapshot(), true
}

// Stats returns a point-in-time view of coordinator state.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Pending:   len(c.tasks) - c.runCount,
		Running:   c.runCount,
		Completed: c.completed,
		Failed:    c.failed,
		Cancelled: c.cancelled,
		Expired:   c.expired,
	}
}

// Shutdown stops accepting submissions and waits for the workers to exit.
// With drain=true, queued tasks run to completion first. With drain=false,
// queued tasks are discarded as Cancelled and never executed. Tasks already
// running always finish; they are never preempted.
func (c *Coordinator) Shutdown(ctx context.Context, drain bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.await(ctx)
	}
	c.closed = true

	var discarded []*task.Task
	if !drain {
		for _, t := range c.queue.Drain() {
			if t.State != task.StatePending {
				continue
			}
			c.liveness.Cancel(t.ID)
			c.terminalLocked(t, task.StateCancelled, nil)
			c.cancelled++
			discarded = append(discarded, t)
		}
	}
	c.mu.Unlock()

	c.logger.Info("coordinator shutting down",
		slog.Bool("drain", drain),
		slog.Int("discarded", len(discarded)),
	)

	// Wake everyone: blocked leader re-checks closed, followers cascade out.
	c.workCond.Broadcast()
	c.leaderCond.Broadcast()

	for _, t := range discarded {
		t.Notify()
		c.extensions.EmitTaskCancelled(ctx, t.Snapshot())
	}

	return c.await(ctx)
}

// await blocks until all workers exit or the context expires.
func (c *Coordinator) await(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("coordinator stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("coordinator shutdown timed out")
		return ctx.Err()
	}
}

// run is the per-worker loop: compete for leadership, dispatch one task,
// rejoin the follower pool.
func (c *Coordinator) run(workerID id.WorkerID) {
	defer c.wg.Done()

	for {
		t, ok := c.lead(workerID)
		if !ok {
			return
		}
		if t != nil {
			c.execute(t)
		}
	}
}

// lead blocks until this worker becomes leader, waits for work, pops the
// next live task, hands leadership off, and returns the task to execute.
// Returns ok=false when the worker should exit.
func (c *Coordinator) lead(workerID id.WorkerID) (*task.Task, bool) {
	c.mu.Lock()

	for c.hasLeader {
		c.leaderCond.Wait()
	}
	c.hasLeader = true
	c.observeRole(workerID, RoleLeader)

	for {
		t, ok := c.queue.PopHighest()
		if ok {
			if !t.Deadline.IsZero() && time.Now().After(t.Deadline) {
				c.expireLocked(t)
				continue
			}

			// Promote-then-execute: hand leadership to a follower
			// before running the body.
			c.hasLeader = false
			c.observeRole(workerID, RoleFollower)
			c.leaderCond.Signal()
			c.mu.Unlock()
			return t, true
		}

		if c.closed {
			// Queue drained (or discarded). Relinquish leadership so
			// the remaining followers can cascade out.
			c.hasLeader = false
			c.observeRole(workerID, RoleFollower)
			c.leaderCond.Broadcast()
			c.mu.Unlock()
			return nil, false
		}

		c.workCond.Wait()
	}
}

// expireLocked marks a task whose deadline passed before dispatch as
// Failed with ErrDeadlineExceeded. The task body is never invoked.
// Called with the lock held; the lock is dropped around the notification.
func (c *Coordinator) expireLocked(t *task.Task) {
	c.liveness.Cancel(t.ID)
	c.terminalLocked(t, task.StateFailed, ErrDeadlineExceeded)
	c.expired++
	snap := t.Snapshot()

	c.mu.Unlock()
	t.Notify()
	c.extensions.EmitTaskExpired(context.Background(), snap)
	c.logger.Warn("task deadline exceeded before start",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
		slog.Time("deadline", t.Deadline),
	)
	c.mu.Lock()
}

// execute runs one popped task through the second cancellation checkpoint
// and the executor, then records the terminal state.
func (c *Coordinator) execute(t *task.Task) {
	// Second cancellation checkpoint: the task may have been cancelled in
	// the window between pop and execution. The registry has its own lock,
	// so this read does not contend with the dispatch path.
	if !c.liveness.IsLive(t.ID) {
		return
	}

	c.mu.Lock()
	if t.State != task.StatePending {
		// Lost the race with Cancel after the liveness read.
		c.mu.Unlock()
		return
	}
	t.State = task.StateRunning
	now := time.Now().UTC()
	t.StartedAt = &now
	c.runCount++
	c.mu.Unlock()

	err := c.executor.Execute(context.Background(), t)

	c.mu.Lock()
	c.runCount--
	if err != nil {
		c.terminalLocked(t, task.StateFailed, err)
		c.failed++
	} else {
		c.terminalLocked(t, task.StateCompleted, nil)
		c.completed++
	}
	c.mu.Unlock()

	t.Notify()
}

// terminalLocked records a terminal state and releases the bookkeeping
// entries. Callers hold the lock and handle notification themselves.
func (c *Coordinator) terminalLocked(t *task.Task, s task.State, err error) {
	t.State = s
	now := time.Now().UTC()
	t.CompletedAt = &now
	if err != nil {
		t.LastError = err.Error()
	}
	delete(c.tasks, t.ID.String())
	c.liveness.Forget(t.ID)
}

func (c *Coordinator) observeRole(workerID id.WorkerID, role Role) {
	if c.onRole != nil {
		c.onRole(workerID, role)
	}
}
