package queue

import (
	"container/heap"
	"time"
)

// delayedItem is a task waiting for its deadline, ordered by when it
// becomes runnable.
type delayedItem[T any] struct {
	task     T
	deadline time.Time
}

// delayHeap is a min-heap by deadline, so the Work Queue only ever
// needs a single timer armed for the next deadline (spec.md §5: "no
// CPU-bound section inside a task" — and no per-task timer goroutine
// either).
type delayHeap[T any] []delayedItem[T]

func (h delayHeap[T]) Len() int            { return len(h) }
func (h delayHeap[T]) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h delayHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *delayHeap[T]) Push(x interface{}) { *h = append(*h, x.(delayedItem[T])) }
func (h *delayHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *delayHeap[T]) push(task T, deadline time.Time) {
	heap.Push(h, delayedItem[T]{task: task, deadline: deadline})
}

// peek returns the earliest deadline without removing it.
func (h delayHeap[T]) peek() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].deadline, true
}

// popDue removes and returns every item whose deadline is <= now.
func (h *delayHeap[T]) popDue(now time.Time) []T {
	var due []T
	for len(*h) > 0 && !(*h)[0].deadline.After(now) {
		item := heap.Pop(h).(delayedItem[T])
		due = append(due, item.task)
	}
	return due
}
