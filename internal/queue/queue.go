// Package queue implements the Work Queue component (spec.md §4.6): a
// bounded-concurrency task scheduler supporting deferred (delayed)
// tasks and an "all idle" barrier.
//
// Concurrency is bounded with golang.org/x/sync/semaphore.Weighted
// rather than a fixed goroutine pool, so the bound applies to tasks
// actually executing, independent of how many are merely queued. A
// single dispatcher goroutine drains the FIFO of runnable tasks in
// order (spec.md §4.6: "FIFO among runnable tasks"); a single promoter
// goroutine owns one timer armed for the next delayed deadline
// (spec.md §5 forbids a per-task timer or any other busy work inside a
// task). Per spec.md §9's redesign note, the queue only ever stores
// CrawlTask-shaped data — handler closures never capture per-task
// state beyond what is passed back to them as the argument.
//
// The dispatcher, promoter and idle-wake loops are the queue's own
// worker goroutines, supervised by a golang.org/x/sync/errgroup.Group:
// a handler panic stays task data, recovered and swallowed inside
// execute per spec.md §4.6, but a panic inside the queue's own
// machinery is a catastrophic, non-task failure. errgroup captures the
// first one, cancels the group's derived context so the remaining
// loops unwind, and surfaces it through Err.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Handler processes one task. It must not panic with anything the
// caller cares about recovering — the queue recovers panics itself and
// treats them as if the handler simply returned, since task failures
// are data (spec.md §4.6: "an unrecovered failure inside a task does
// not halt the queue").
type Handler[T any] func(ctx context.Context, task T)

// Queue is safe for concurrent use. Create with New, start exactly
// once with Run, and use Add/Wait from any goroutine.
type Queue[T any] struct {
	handler Handler[T]
	sem     *semaphore.Weighted
	now     func() time.Time

	mu       sync.Mutex
	cond     *sync.Cond
	runnable fifoQueue[T]
	delayed  delayHeap[T]
	running  int
	wake     chan struct{}

	group *errgroup.Group
}

// New creates a Queue with the given concurrency bound (spec.md §4.6
// default is 100, enforced by the caller, not here). now defaults to
// time.Now when nil, overridable in tests.
func New[T any](concurrency int, handler Handler[T], now func() time.Time) *Queue[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	q := &Queue[T]{
		handler: handler,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		now:     now,
		wake:    make(chan struct{}, 1),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add enqueues task. If delay > 0 the task only becomes runnable once
// delay has elapsed (spec.md §4.6). Safe to call from any goroutine,
// including from inside a running task (self-reschedule on 429 or
// delay-cache gate, spec.md §4.4/§4.7).
func (q *Queue[T]) Add(task T, delay time.Duration) {
	q.mu.Lock()
	if delay > 0 {
		q.delayed.push(task, q.now().Add(delay))
		q.mu.Unlock()
		select {
		case q.wake <- struct{}{}:
		default:
		}
		return
	}
	q.runnable.enqueue(task)
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Run starts the dispatcher and delay-promoter goroutines under an
// errgroup.Group, and returns immediately; the queue keeps running
// until ctx is cancelled. Call Err after ctx is done to collect the
// first catastrophic failure recovered from those goroutines, if any.
func (q *Queue[T]) Run(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	q.group = g

	g.Go(func() (err error) {
		defer recoverInto(&err, "dispatch loop")
		q.dispatchLoop(gctx)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, "promote loop")
		q.promoteLoop(gctx)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, "wake loop")
		q.wakeOnDone(gctx)
		return nil
	})
}

// recoverInto converts a panic recovered from one of the queue's own
// supervisor goroutines into an error, for errgroup to collect. Task
// handler panics never reach here; execute recovers those itself.
func recoverInto(err *error, label string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("queue: %s: %v", label, r)
	}
}

// Err blocks until every supervisor goroutine started by Run has
// exited, then returns the first catastrophic, non-task failure among
// them, or nil. Only meaningful once ctx passed to Run is done — call
// it after cancelling that ctx, not while the queue is still serving
// tasks.
func (q *Queue[T]) Err() error {
	if q.group == nil {
		return nil
	}
	return q.group.Wait()
}

// wakeOnDone wakes every goroutine parked in q.cond.Wait once ctx is
// cancelled, so dispatchLoop and Wait's idle-poller notice ctx.Err()
// instead of blocking until process exit.
func (q *Queue[T]) wakeOnDone(ctx context.Context) {
	<-ctx.Done()
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *Queue[T]) dispatchLoop(ctx context.Context) {
	for {
		q.mu.Lock()
		for q.runnable.size() == 0 && ctx.Err() == nil {
			q.cond.Wait()
		}
		if ctx.Err() != nil {
			q.mu.Unlock()
			return
		}
		task, _ := q.runnable.dequeue()
		q.running++
		q.mu.Unlock()

		if err := q.sem.Acquire(ctx, 1); err != nil {
			q.mu.Lock()
			q.running--
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}

		go q.execute(ctx, task)
	}
}

func (q *Queue[T]) execute(ctx context.Context, task T) {
	defer q.sem.Release(1)
	defer func() {
		// Handler failures become LinkResult data (spec.md §4.6); a
		// panic is the one case nothing downstream has classified, so
		// it is swallowed here rather than taking the whole run down.
		_ = recover()
		q.mu.Lock()
		q.running--
		q.cond.Broadcast()
		q.mu.Unlock()
	}()
	q.handler(ctx, task)
}

func (q *Queue[T]) promoteLoop(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		q.mu.Lock()
		deadline, ok := q.delayed.peek()
		q.mu.Unlock()

		if ok {
			wait := deadline.Sub(q.now())
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
		}

		var timerC <-chan time.Time
		if ok {
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			continue
		case <-timerC:
			q.mu.Lock()
			due := q.delayed.popDue(q.now())
			for _, t := range due {
				q.runnable.enqueue(t)
			}
			q.mu.Unlock()
			if len(due) > 0 {
				q.cond.Broadcast()
			}
		}
	}
}

// Idle reports whether the queue currently has zero runnable, zero
// running and zero delayed tasks.
func (q *Queue[T]) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.runnable.size() == 0 && q.running == 0 && len(q.delayed) == 0
}

// Wait blocks until the queue is idle (spec.md §4.6's onIdle barrier)
// or ctx is done, whichever comes first. The internal idle-poller goroutine
// exits at once when cancelling ctx also cancels the context passed to
// Run (wakeOnDone then wakes it); otherwise it exits at the next change
// of queue state after ctx is done.
func (q *Queue[T]) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for !(q.runnable.size() == 0 && q.running == 0 && len(q.delayed) == 0) && ctx.Err() == nil {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
