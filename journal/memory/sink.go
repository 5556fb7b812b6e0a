// Package memory provides an in-process journal sink, suitable for tests
// and single-binary deployments that only need recent history.
package memory

import (
	"context"
	"sync"

	"github.com/herdlabs/herd/journal"
)

// Sink accumulates journal entries in memory. When a capacity is set, the
// oldest entries are evicted first.
type Sink struct {
	mu      sync.Mutex
	entries []journal.Entry
	cap     int
}

// Option configures a Sink.
type Option func(*Sink)

// WithCapacity bounds the number of retained entries. Zero (the default)
// retains everything.
func WithCapacity(n int) Option {
	return func(s *Sink) { s.cap = n }
}

// New creates an in-memory sink.
func New(opts ...Option) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append implements journal.Sink.
func (s *Sink) Append(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, *e)
	if s.cap > 0 && len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

// Close implements journal.Sink.
func (s *Sink) Close() error { return nil }

// Entries returns a copy of the retained entries in append order.
func (s *Sink) Entries() []journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]journal.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of retained entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
