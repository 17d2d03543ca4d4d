package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsEveryTaskExactlyOnce(t *testing.T) {
	var count int32
	q := New(4, func(ctx context.Context, task int) {
		atomic.AddInt32(&count, 1)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	for i := 0; i < 50; i++ {
		q.Add(i, 0)
	}
	q.Wait(context.Background())

	assert.Equal(t, int32(50), atomic.LoadInt32(&count))
}

func TestQueueRespectsConcurrencyBound(t *testing.T) {
	const bound = 3
	var current, max int32
	var mu sync.Mutex

	q := New(bound, func(ctx context.Context, task int) {
		n := atomic.AddInt32(&current, 1)
		mu.Lock()
		if n > max {
			max = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	for i := 0; i < 30; i++ {
		q.Add(i, 0)
	}
	q.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, int(max), bound)
}

func TestQueueDispatchesRunnableTasksInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	q := New(1, func(ctx context.Context, task int) {
		mu.Lock()
		order = append(order, task)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	for i := 0; i < 10; i++ {
		q.Add(i, 0)
	}
	q.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 10)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestQueueDelayedTaskBecomesRunnableOnlyAfterDeadline(t *testing.T) {
	fakeNow := time.Unix(0, 0)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return fakeNow
	}
	advance := func(d time.Duration) {
		mu.Lock()
		fakeNow = fakeNow.Add(d)
		mu.Unlock()
	}

	ran := make(chan struct{}, 1)
	q := New(1, func(ctx context.Context, task string) {
		ran <- struct{}{}
	}, now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	q.Add("delayed", time.Hour)

	select {
	case <-ran:
		t.Fatal("task ran before its delay elapsed")
	case <-time.After(30 * time.Millisecond):
	}

	advance(time.Hour)
	// promoteLoop's timer was armed against the fake clock's original
	// "now"; nudge it to re-evaluate against the advanced clock.
	q.Add("immediate-to-trigger-reeval", 0)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("delayed task never ran after deadline elapsed")
	}
}

func TestQueueIdleReflectsRunnableRunningAndDelayed(t *testing.T) {
	release := make(chan struct{})
	q := New(1, func(ctx context.Context, task int) {
		<-release
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	assert.True(t, q.Idle())

	q.Add(1, 0)
	// Give the dispatcher a moment to pick the task up.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, q.Idle())

	close(release)

	waited := make(chan struct{})
	go func() {
		q.Wait(context.Background())
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait never observed idle")
	}
	assert.True(t, q.Idle())
}

func TestQueueWaitReturnsOnContextCancelEvenWhenNotIdle(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	q := New(1, func(ctx context.Context, task int) {
		<-block
	}, nil)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	q.Run(runCtx)

	q.Add(1, 0)
	time.Sleep(20 * time.Millisecond)

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancelWait()

	start := time.Now()
	q.Wait(waitCtx)
	assert.Less(t, time.Since(start), time.Second, "Wait should return promptly once waitCtx is done")
}

func TestQueueErrCapturesPromoteLoopPanic(t *testing.T) {
	now := func() time.Time {
		panic("clock exploded")
	}
	q := New(1, func(ctx context.Context, task int) {}, now)

	// Seed the delay heap directly so promoteLoop's peek finds a
	// deadline without going through the panicking clock itself; its
	// first call to now() happens inside promoteLoop.
	q.mu.Lock()
	q.delayed.push(1, time.Now().Add(time.Millisecond))
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	err := q.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clock exploded")
}

func TestQueueHandlerPanicDoesNotHaltTheQueue(t *testing.T) {
	var ranAfterPanic int32
	q := New(1, func(ctx context.Context, task int) {
		if task == 0 {
			panic("boom")
		}
		atomic.AddInt32(&ranAfterPanic, 1)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	q.Add(0, 0)
	q.Add(1, 0)
	q.Wait(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&ranAfterPanic))
}
