// Package cache is the shared, key-addressed query cache that sits between
// the views and the task service. Entries are filled on first read, marked
// stale by prefix invalidation and refilled lazily on the next read.
// Concurrent reads of one key share a single fetch.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/imkarma/taskboard/internal/log"
)

// FetchFunc loads the value for a key from the service.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value any
	stale bool
}

// Cache holds query results by key.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	// gen counts invalidations per key ever requested. A fetch that started
	// under an older generation still answers its waiters but is stored
	// stale, and later readers start a new fetch instead of joining it.
	gen   map[string]uint64
	group singleflight.Group
	log   *logrus.Logger
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		gen:     make(map[string]uint64),
		log:     log.GetLogger(),
	}
}

// Get returns the fresh value for key, fetching it when absent or stale.
// Errors are returned to every waiter and never stored. If ctx ends first
// the caller gets ctx.Err(); the fetch itself keeps running for the other
// waiters and its result is still stored.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	gen, seen := c.gen[key]
	if !seen {
		c.gen[key] = 0
	}
	c.mu.Unlock()

	flight := key + "@" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		c.log.WithField("key", key).Debug("cache miss; fetching")
		v, err := fetch(context.WithoutCancel(ctx))
		c.store(key, gen, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) store(key string, gen uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if e, ok := c.entries[key]; ok && e.stale {
			delete(c.entries, key)
		}
		c.log.WithField("key", key).Debugf("fetch failed, not cached: %v", err)
		return
	}

	current := c.gen[key]
	if gen < current {
		// Invalidated mid-flight. Keep a newer fetch's result if one landed.
		if e, ok := c.entries[key]; !ok || e.stale {
			c.entries[key] = &entry{value: v, stale: true}
		}
		return
	}
	c.entries[key] = &entry{value: v}
}

// Invalidate marks every entry whose key starts with prefix as stale. It
// does not fetch. Fetches in flight for matching keys are also marked.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.stale = true
			n++
		}
	}
	for key := range c.gen {
		if strings.HasPrefix(key, prefix) {
			c.gen[key]++
		}
	}
	c.log.WithFields(logrus.Fields{"prefix": prefix, "entries": n}).Debug("cache invalidated")
}

// Peek returns the stored value for key without fetching, and whether it is
// stale.
func (c *Cache) Peek(key string) (value any, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.value, e.stale, true
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
