package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunSequential_EmptyIDs(t *testing.T) {
	pool := NewPool(1)

	var calls atomic.Int32
	results := pool.Run(context.Background(), nil, func(context.Context, int64) error {
		calls.Add(1)
		return nil
	})
	assert.Empty(t, results)
	assert.Zero(t, calls.Load(), "job must not run")
}

func TestPool_ResultsKeepInputOrder(t *testing.T) {
	pool := NewPool(3)
	ids := []int64{5, 4, 3, 2, 1}

	results := pool.Run(context.Background(), ids, func(_ context.Context, id int64) error {
		time.Sleep(time.Duration(id) * time.Millisecond)
		if id == 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.TaskID, "result %d", i)
	}
	assert.False(t, results[2].OK(), "task 3 should have failed")

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(3), failed[0].TaskID)
}

func TestPool_RunParallel_RespectsMaxWorkers(t *testing.T) {
	pool := NewPool(2)

	var running, peak int32
	var mu sync.Mutex
	ids := []int64{1, 2, 3, 4, 5, 6}

	results := pool.Run(context.Background(), ids, func(context.Context, int64) error {
		n := atomic.AddInt32(&running, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	assert.Len(t, results, len(ids))
	assert.LessOrEqual(t, peak, int32(2), "at most 2 concurrent jobs")
}

func TestPool_CancelledContextSkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := NewPool(4).Run(ctx, []int64{1, 2, 3}, func(context.Context, int64) error {
		calls.Add(1)
		return nil
	})

	assert.Zero(t, calls.Load(), "no job may run")
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled, "task %d", r.TaskID)
	}
}
