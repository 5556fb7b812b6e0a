// Package redis provides a journal sink backed by a Redis stream, giving
// multiple consumers a tailable, trimmed history of task lifecycle events.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/herdlabs/herd/journal"
)

const defaultStream = "herd:journal"

// Sink appends journal entries to a Redis stream with XADD. Entries are
// codec-encoded into a single stream field so the wire format follows the
// configured codec, not Redis hash conventions.
type Sink struct {
	client *goredis.Client
	stream string
	codec  journal.Codec
	maxLen int64
}

// Option configures the Sink.
type Option func(*Sink)

// WithStream sets the stream key. Defaults to "herd:journal".
func WithStream(key string) Option {
	return func(s *Sink) { s.stream = key }
}

// WithCodec sets the entry codec. Defaults to JSON.
func WithCodec(c journal.Codec) Option {
	return func(s *Sink) { s.codec = c }
}

// WithMaxLen trims the stream to approximately n entries. Zero disables
// trimming.
func WithMaxLen(n int64) Option {
	return func(s *Sink) { s.maxLen = n }
}

// New creates a Redis-backed journal sink on an existing client.
func New(client *goredis.Client, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		stream: defaultStream,
		codec:  &journal.JSONCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append implements journal.Sink.
func (s *Sink) Append(ctx context.Context, e *journal.Entry) error {
	data, err := s.codec.Encode(e)
	if err != nil {
		return fmt.Errorf("herd/redis: encode journal entry: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"entry": data,
			"codec": s.codec.Name(),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("herd/redis: append journal entry: %w", err)
	}
	return nil
}

// Range reads up to count entries from the start of the stream in append
// order.
func (s *Sink) Range(ctx context.Context, count int64) ([]journal.Entry, error) {
	msgs, err := s.client.XRangeN(ctx, s.stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("herd/redis: range journal: %w", err)
	}

	out := make([]journal.Entry, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["entry"].(string)
		if !ok {
			continue
		}
		name, _ := msg.Values["codec"].(string)
		e, decErr := journal.GetCodec(name).Decode([]byte(raw))
		if decErr != nil {
			return nil, fmt.Errorf("herd/redis: decode journal entry %s: %w", msg.ID, decErr)
		}
		out = append(out, *e)
	}
	return out, nil
}

// Close implements journal.Sink by closing the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
