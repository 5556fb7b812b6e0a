// Package admission provides per-class submission control: a token-bucket
// rate limit and an in-flight ceiling applied before a task is accepted
// into the queue. Classes not configured have no limits.
package admission

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned by Admit when a class rejects the submission,
// either because the rate limit is exhausted or too many of its tasks are
// still in flight.
var ErrThrottled = errors.New("herd: submission rejected by admission class")

// Class defines per-class admission behaviour.
type Class struct {
	// Name is the class identifier (must match the task.Class field).
	Name string

	// MaxInFlight limits how many admitted tasks of this class may be
	// non-terminal at once. Zero means no in-flight limit.
	MaxInFlight int

	// Rate is the maximum sustained submissions per second for this
	// class. Zero disables rate limiting.
	Rate float64

	// Burst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if Rate is set but Burst is zero.
	Burst int
}

// classState tracks runtime state for a single class.
type classState struct {
	config   Class
	limiter  *rate.Limiter
	inFlight int
}

// Manager controls per-class rate limiting and in-flight ceilings.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	classes map[string]*classState
}

// NewManager creates a Manager with the given class configurations.
// Classes not listed here have no limits.
func NewManager(classes ...Class) *Manager {
	m := &Manager{
		classes: make(map[string]*classState, len(classes)),
	}
	for _, cfg := range classes {
		m.classes[cfg.Name] = newClassState(cfg)
	}
	return m
}

func newClassState(cfg Class) *classState {
	cs := &classState{config: cfg}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		cs.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return cs
}

// Admit checks the class limits for a submission. If the task is allowed
// to proceed it increments the in-flight counter and returns nil; the
// caller MUST call Release when the task reaches a terminal state.
// Rejections return ErrThrottled.
func (m *Manager) Admit(class string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.classes[class]
	if cs == nil {
		return nil
	}

	if cs.limiter != nil && !cs.limiter.Allow() {
		return ErrThrottled
	}
	if cs.config.MaxInFlight > 0 && cs.inFlight >= cs.config.MaxInFlight {
		return ErrThrottled
	}

	cs.inFlight++
	return nil
}

// Release decrements the in-flight count for the class.
func (m *Manager) Release(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cs := m.classes[class]; cs != nil && cs.inFlight > 0 {
		cs.inFlight--
	}
}

// SetClass dynamically updates (or creates) a class configuration.
// The current in-flight count is preserved across reconfiguration.
func (m *Manager) SetClass(cfg Class) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.classes[cfg.Name]
	cs := newClassState(cfg)
	if existing != nil {
		cs.inFlight = existing.inFlight
	}
	m.classes[cfg.Name] = cs
}

// InFlight returns the current number of non-terminal admitted tasks for
// a class.
func (m *Manager) InFlight(class string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs := m.classes[class]; cs != nil {
		return cs.inFlight
	}
	return 0
}
