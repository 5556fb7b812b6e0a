// Package feed streams task lifecycle events to WebSocket subscribers.
// The Server implements journal.Sink, so it plugs into the engine the same
// way a durable sink does: wrap it in journal.NewExtension and register it.
// Slow subscribers are skipped rather than back-pressuring dispatch.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/sync/errgroup"

	"github.com/herdlabs/herd/journal"
)

// subscriber is one connected WebSocket client.
type subscriber struct {
	id uint64
	ch chan []byte
}

// Server broadcasts journal entries to connected WebSocket clients.
type Server struct {
	logger *slog.Logger
	codec  journal.Codec
	buffer int

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	conns  map[uint64]net.Conn
	nextID uint64
	closed bool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCodec sets the wire codec for broadcast entries. Defaults to JSON.
func WithCodec(codec journal.Codec) Option {
	return func(s *Server) { s.codec = codec }
}

// WithBuffer sets the per-subscriber send buffer. When a subscriber's
// buffer is full, entries are dropped for that subscriber.
func WithBuffer(n int) Option {
	return func(s *Server) { s.buffer = n }
}

// NewServer creates a feed server. Mount it on an HTTP mux; it upgrades
// incoming requests to WebSocket connections.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger: slog.Default(),
		codec:  &journal.JSONCodec{},
		buffer: 64,
		subs:   make(map[uint64]*subscriber),
		conns:  make(map[uint64]net.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and streams entries until the client
// disconnects or the server closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("feed upgrade failed", slog.String("error", err.Error()))
		return
	}

	sub, regErr := s.register(conn)
	if regErr != nil {
		_ = conn.Close()
		return
	}
	defer s.unregister(sub.id)

	s.logger.Info("feed subscriber connected",
		slog.Uint64("subscriber_id", sub.id),
		slog.String("remote_addr", conn.RemoteAddr().String()),
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return s.readLoop(conn) })
	g.Go(func() error { return s.writeLoop(ctx, conn, sub.ch) })
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	if waitErr := g.Wait(); waitErr != nil {
		s.logger.Debug("feed subscriber disconnected",
			slog.Uint64("subscriber_id", sub.id),
			slog.String("reason", waitErr.Error()),
		)
	}
}

// readLoop drains client frames. Clients send no application data; the
// loop exists to process control frames and detect disconnects.
func (s *Server) readLoop(conn net.Conn) error {
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			return fmt.Errorf("herd/feed: read: %w", err)
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn net.Conn, ch <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return fmt.Errorf("herd/feed: server closed")
			}
			if err := wsutil.WriteServerText(conn, data); err != nil {
				return fmt.Errorf("herd/feed: write: %w", err)
			}
		}
	}
}

func (s *Server) register(conn net.Conn) (*subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("herd/feed: server closed")
	}
	s.nextID++
	sub := &subscriber{id: s.nextID, ch: make(chan []byte, s.buffer)}
	s.subs[sub.id] = sub
	s.conns[sub.id] = conn
	return sub, nil
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	delete(s.conns, id)
}

// SubscriberCount returns the number of connected subscribers.
func (s *Server) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Append implements journal.Sink: the entry is encoded once and fanned
// out to every subscriber. Subscribers with full buffers are skipped.
func (s *Server) Append(_ context.Context, e *journal.Entry) error {
	data, err := s.codec.Encode(e)
	if err != nil {
		return fmt.Errorf("herd/feed: encode entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("herd/feed: server closed")
	}
	for _, sub := range s.subs {
		select {
		case sub.ch <- data:
		default:
			s.logger.Debug("feed subscriber lagging, entry dropped",
				slog.Uint64("subscriber_id", sub.id),
				slog.String("event", string(e.Event)),
			)
		}
	}
	return nil
}

// Close implements journal.Sink by disconnecting all subscribers.
// Further Append calls fail.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		close(sub.ch)
		if conn, ok := s.conns[id]; ok {
			_ = conn.Close()
		}
	}
	s.subs = make(map[uint64]*subscriber)
	s.conns = make(map[uint64]net.Conn)
	return nil
}
