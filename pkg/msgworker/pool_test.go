package msgworker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	start := time.Now()
	pool.Dispatch(Job{
		Key: "chat-1",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})

	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestPool_SameKeySequentialProcessing(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var results []int
	var mu sync.Mutex

	for i := 1; i <= 5; i++ {
		val := i
		pool.Dispatch(Job{
			Key: "chat-1",
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 5
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_RespectsMaxWorkers(t *testing.T) {
	maxWorkers := 3
	pool := NewPool(maxWorkers, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	var activeCount, maxActive, done int32

	for i := 0; i < 10; i++ {
		pool.Dispatch(Job{
			Key: fmt.Sprintf("chat-%d", i),
			Handler: func(ctx context.Context) error {
				current := atomic.AddInt32(&activeCount, 1)
				for {
					max := atomic.LoadInt32(&maxActive)
					if current <= max || atomic.CompareAndSwapInt32(&maxActive, max, current) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&activeCount, -1)
				atomic.AddInt32(&done, 1)
				return nil
			},
		})
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 10 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxActive), int32(maxWorkers))
}

func TestPool_StopDrainsQueuedJobs(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start(context.Background())

	var completed int32
	for i := 0; i < 3; i++ {
		pool.Dispatch(Job{
			Key: "chat-1",
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&completed, 1)
				return nil
			},
		})
	}

	pool.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&completed))
}

func TestPool_DispatchAfterStopIsDropped(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start(context.Background())
	pool.Stop()

	ok := pool.TryDispatch(Job{Key: "x", Handler: func(ctx context.Context) error { return nil }})
	assert.False(t, ok)
	assert.Equal(t, int64(1), pool.Stats().TotalDropped)
}

func TestPool_DispatchBeforeStartIsDropped(t *testing.T) {
	pool := NewPool(1, 1)
	assert.False(t, pool.TryDispatch(Job{Key: "x", Handler: func(ctx context.Context) error { return nil }}))
}

func TestPool_ErrorsAndPanicsAreCounted(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start(context.Background())

	pool.Dispatch(Job{Key: "a", Handler: func(ctx context.Context) error { return fmt.Errorf("boom") }})
	pool.Dispatch(Job{Key: "a", Handler: func(ctx context.Context) error { panic("bad") }})
	pool.Dispatch(Job{Key: "a", Handler: func(ctx context.Context) error { return nil }})
	pool.Stop()

	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Equal(t, int64(2), stats.TotalErrors)
}

func TestPool_ConsistentHashing(t *testing.T) {
	pool := NewPool(4, 100)

	shard := pool.shardFor("chat123")
	assert.Equal(t, shard, pool.shardFor("chat123"))
	assert.GreaterOrEqual(t, shard, 0)
	assert.Less(t, shard, 4)
}

func TestPool_FairDistribution(t *testing.T) {
	pool := NewPool(4, 100)
	counts := make(map[int]int)

	for i := 0; i < 400; i++ {
		counts[pool.shardFor(fmt.Sprintf("chat-%d", i))]++
	}

	for shard, count := range counts {
		assert.Greater(t, count, 60, "worker %d", shard)
		assert.Less(t, count, 140, "worker %d", shard)
	}
}
