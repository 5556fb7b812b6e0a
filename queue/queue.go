// Package queue provides the pending-task priority queue and the
// cancellation liveness registry. The queue orders live tasks by
// (priority desc, sequence asc); the registry answers "has this task been
// cancelled?" at the two checkpoints the dispatch path consults.
package queue

import (
	"container/heap"

	"github.com/herdlabs/herd/task"
)

// PriorityQueue is a binary heap of pending tasks keyed by priority
// (descending) with sequence (ascending) as the tie-break, so equal-priority
// tasks dispatch in submission order.
//
// PriorityQueue is not self-synchronizing: the coordinator serializes all
// access under its own lock.
type PriorityQueue struct {
	h taskHeap
}

// NewPriorityQueue returns an empty queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Insert adds a pending task. O(log n).
func (q *PriorityQueue) Insert(t *task.Task) {
	heap.Push(&q.h, t)
}

// PopHighest removes and returns the highest-priority, earliest-inserted
// task that is still pending. Records cancelled while queued are lazily
// purged here rather than eagerly removed on cancellation. Returns ok=false
// when no live task remains; the caller blocks on the work condition rather
// than spinning.
func (q *PriorityQueue) PopHighest() (*task.Task, bool) {
	for q.h.Len() > 0 {
		t := heap.Pop(&q.h).(*task.Task)
		if t.State != task.StatePending {
			continue // cancelled while queued; skip
		}
		return t, true
	}
	return nil, false
}

// Drain removes and returns every remaining task, live or not, in heap
// order. Used by the coordinator's discard shutdown path.
func (q *PriorityQueue) Drain() []*task.Task {
	out := make([]*task.Task, 0, q.h.Len())
	for q.h.Len() > 0 {
		out = append(out, heap.Pop(&q.h).(*task.Task))
	}
	return out
}

// Len returns the number of records in the queue, including records
// awaiting lazy purge.
func (q *PriorityQueue) Len() int { return q.h.Len() }

// taskHeap implements heap.Interface. Less orders max-priority first and,
// within a priority, lowest sequence first.
type taskHeap []*task.Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*task.Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
