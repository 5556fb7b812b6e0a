// Package sched provides recurring task submission on cron schedules.
// The scheduler holds entries in memory and submits through the engine's
// public Submit path — entries keep a Submitter interface, never an owning
// reference back to the engine.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/herdlabs/herd/id"
	"github.com/herdlabs/herd/task"
)

var (
	// ErrDuplicateEntry is returned by Register for an already-known name.
	ErrDuplicateEntry = errors.New("herd: duplicate schedule entry")

	// ErrEntryNotFound is returned when enabling or disabling an unknown
	// entry.
	ErrEntryNotFound = errors.New("herd: schedule entry not found")
)

// Submitter is the callback surface the scheduler submits through.
// The engine satisfies it; the indirection avoids an owning back-reference.
type Submitter interface {
	Submit(fn task.Func, opts ...task.Option) (id.TaskID, error)
}

// Emitter emits schedule lifecycle events.
// ext.Registry satisfies this interface via EmitScheduleFired.
type Emitter interface {
	EmitScheduleFired(ctx context.Context, entryName string, taskID id.TaskID)
}

// Definition describes one recurring task.
type Definition struct {
	// Name uniquely identifies the entry.
	Name string

	// Schedule is a standard 5-field cron expression or a descriptor
	// such as "@hourly" or "@every 30s".
	Schedule string

	// Body is the task function submitted on each firing.
	Body task.Func

	// Options are applied to every submitted task.
	Options []task.Option
}

// Entry is the runtime state of a registered definition.
type Entry struct {
	Name      string
	Schedule  string
	LastRunAt *time.Time
	NextRunAt time.Time
	Enabled   bool
}

// entryState pairs a definition with its parsed schedule.
type entryState struct {
	def       Definition
	sched     cronlib.Schedule
	lastRunAt *time.Time
	nextRunAt time.Time
	enabled   bool
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// Scheduler fires registered entries on a tick loop.
type Scheduler struct {
	submitter Submitter
	emitter   Emitter
	logger    *slog.Logger

	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*entryState

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(submitter Submitter, emitter Emitter, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		submitter:    submitter,
		emitter:      emitter,
		logger:       logger,
		tickInterval: 1 * time.Second,
		entries:      make(map[string]*entryState),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tickInterval <= 0 {
		s.tickInterval = 1 * time.Second
	}
	return s
}

// Register validates the definition's schedule, computes its first firing
// time, and adds it. Duplicate names are rejected.
func (s *Scheduler) Register(def Definition) error {
	sched, err := ParseSchedule(def.Schedule)
	if err != nil {
		return fmt.Errorf("herd/sched: invalid schedule %q: %w", def.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[def.Name]; ok {
		return ErrDuplicateEntry
	}
	s.entries[def.Name] = &entryState{
		def:       def,
		sched:     sched,
		nextRunAt: sched.Next(time.Now().UTC()),
		enabled:   true,
	}

	s.logger.Info("schedule registered",
		slog.String("name", def.Name),
		slog.String("schedule", def.Schedule),
	)
	return nil
}

// Enable re-enables a disabled entry.
func (s *Scheduler) Enable(name string) error { return s.setEnabled(name, true) }

// Disable stops an entry from firing without removing it.
func (s *Scheduler) Disable(name string) error { return s.setEnabled(name, false) }

func (s *Scheduler) setEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[name]
	if !ok {
		return ErrEntryNotFound
	}
	st.enabled = enabled
	if enabled {
		// Recompute so a long-disabled entry does not fire immediately
		// for every missed slot.
		st.nextRunAt = st.sched.Next(time.Now().UTC())
	}
	return nil
}

// Entries returns a snapshot of the registered entries.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, Entry{
			Name:      st.def.Name,
			Schedule:  st.def.Schedule,
			LastRunAt: st.lastRunAt,
			NextRunAt: st.nextRunAt,
			Enabled:   st.enabled,
		})
	}
	return out
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the scheduler to stop and waits for the tick goroutine.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.Lock()
	var due []*entryState
	for _, st := range s.entries {
		if !st.enabled || st.nextRunAt.After(now) {
			continue
		}
		st.lastRunAt = &now
		st.nextRunAt = st.sched.Next(now)
		due = append(due, st)
	}
	s.mu.Unlock()

	// Submissions happen outside the scheduler lock.
	for _, st := range due {
		s.fire(st, now)
	}
}

func (s *Scheduler) fire(st *entryState, now time.Time) {
	taskID, err := s.submitter.Submit(st.def.Body, st.def.Options...)
	if err != nil {
		s.logger.Error("schedule submit error",
			slog.String("name", st.def.Name),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.emitter != nil {
		s.emitter.EmitScheduleFired(context.Background(), st.def.Name, taskID)
	}

	s.logger.Info("schedule fired",
		slog.String("name", st.def.Name),
		slog.String("task_id", taskID.String()),
		slog.Time("fired_at", now),
	)
}
