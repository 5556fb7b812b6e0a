package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/herdlabs/herd/journal"
	"github.com/herdlabs/herd/journal/memory"
)

func TestAppendAndEntries(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for i := range 3 {
		e := &journal.Entry{TaskID: fmt.Sprintf("task_%d", i), Event: journal.EventEnqueued}
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].TaskID != "task_0" || entries[2].TaskID != "task_2" {
		t.Error("entries not in append order")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := memory.New(memory.WithCapacity(2))
	ctx := context.Background()

	for i := range 5 {
		_ = s.Append(ctx, &journal.Entry{TaskID: fmt.Sprintf("task_%d", i)})
	}

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].TaskID != "task_3" || entries[1].TaskID != "task_4" {
		t.Errorf("retained %q,%q, want the two newest", entries[0].TaskID, entries[1].TaskID)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := memory.New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				_ = s.Append(context.Background(), &journal.Entry{Event: journal.EventStarted})
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 200 {
		t.Errorf("len = %d, want 200", got)
	}
}
