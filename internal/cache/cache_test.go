package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/taskboard/internal/log"
)

func init() { log.Discard() }

// counter returns a fetch that yields its call number.
func counter(calls *atomic.Int32) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}
}

func TestGet_CachesValue(t *testing.T) {
	c := New()
	var calls atomic.Int32

	v, err := c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_DeduplicatesConcurrentReads(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return "tasks", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Get(context.Background(), "k", fetch)
	}()
	<-started

	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(context.Background(), "k", fetch)
		}(i)
	}
	// Give the followers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "tasks", r)
	}
}

func TestGet_ErrorNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	var calls atomic.Int32

	_, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, _, ok := c.Peek("k")
	assert.False(t, ok)

	v, err := c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGet_FailedRefetchDropsStaleEntry(t *testing.T) {
	c := New()
	var calls atomic.Int32
	_, err := c.Get(context.Background(), "k", counter(&calls))
	require.NoError(t, err)

	c.Invalidate("k")
	_, err = c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	assert.Error(t, err)
	_, _, ok := c.Peek("k")
	assert.False(t, ok)
}

func TestInvalidate_ByPrefix(t *testing.T) {
	c := New()
	var calls atomic.Int32
	ctx := context.Background()

	c.Get(ctx, "tasks/any/any", counter(&calls))
	c.Get(ctx, "tasks/todo/any", counter(&calls))
	c.Get(ctx, "taskStats", counter(&calls))
	require.Equal(t, int32(3), calls.Load())

	c.Invalidate("tasks")
	assert.Equal(t, 3, c.Len(), "invalidate marks entries stale, it does not evict")

	_, stale, _ := c.Peek("tasks/any/any")
	assert.True(t, stale)
	_, stale, _ = c.Peek("tasks/todo/any")
	assert.True(t, stale)
	_, stale, _ = c.Peek("taskStats")
	assert.False(t, stale)
	assert.Equal(t, int32(3), calls.Load(), "invalidate must not fetch")

	c.Get(ctx, "tasks/todo/any", counter(&calls))
	assert.Equal(t, int32(4), calls.Load())
}

func TestInvalidate_Idempotent(t *testing.T) {
	c := New()
	var calls atomic.Int32
	ctx := context.Background()

	c.Get(ctx, "tasks/any/any", counter(&calls))
	c.Invalidate("tasks")
	c.Invalidate("tasks")

	c.Get(ctx, "tasks/any/any", counter(&calls))
	c.Get(ctx, "tasks/any/any", counter(&calls))
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidate_DuringFetchStoresStale(t *testing.T) {
	c := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	done := make(chan any)
	go func() {
		v, _ := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()
	<-started
	c.Invalidate("k")
	close(release)

	assert.Equal(t, "old", <-done, "waiters still get the in-flight result")
	_, stale, ok := c.Peek("k")
	require.True(t, ok)
	assert.True(t, stale)

	v, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_CallerCancelDoesNotAbortFetch(t *testing.T) {
	c := New()
	release := make(chan struct{})
	started := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := c.Get(ctx, "k", func(fctx context.Context) (any, error) {
			close(started)
			<-release
			return "value", fctx.Err()
		})
		errc <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		v, stale, ok := c.Peek("k")
		return ok && !stale && v == "value"
	}, time.Second, 5*time.Millisecond)
}
