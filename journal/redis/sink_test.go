//go:build integration

package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/herdlabs/herd/journal"
	redissink "github.com/herdlabs/herd/journal/redis"
)

// setupTestSink creates a Redis container and returns a connected Sink.
func setupTestSink(t *testing.T, opts ...redissink.Option) *redissink.Sink {
	t.Helper()

	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	redisOpts, err := goredis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}

	sink := redissink.New(goredis.NewClient(redisOpts), opts...)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSink_AppendAndRange(t *testing.T) {
	s := setupTestSink(t)
	ctx := context.Background()

	events := []journal.Event{journal.EventEnqueued, journal.EventStarted, journal.EventCompleted}
	for _, ev := range events {
		e := &journal.Entry{
			TaskID: "task_01h455vb4pex5vsknk084sn02q",
			Event:  ev,
		}
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", ev, err)
		}
	}

	got, err := s.Range(ctx, 10)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, ev := range events {
		if got[i].Event != ev {
			t.Errorf("entry %d event = %q, want %q", i, got[i].Event, ev)
		}
	}
}

func TestSink_MsgpackCodec(t *testing.T) {
	s := setupTestSink(t, redissink.WithCodec(&journal.MsgpackCodec{}))
	ctx := context.Background()

	e := &journal.Entry{
		TaskID: "task_01h455vb4pex5vsknk084sn02q",
		Event:  journal.EventFailed,
		Error:  "disk full",
	}
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Range(ctx, 1)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].Error != "disk full" {
		t.Errorf("error = %q, want disk full", got[0].Error)
	}
}
