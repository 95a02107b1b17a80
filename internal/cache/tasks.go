package cache

import (
	"context"
	"fmt"

	"github.com/imkarma/taskboard/internal/task"
)

// Source is the read side of the task service.
type Source interface {
	ListTasks(ctx context.Context, f task.Filter) ([]task.Task, error)
	Stats(ctx context.Context) (*task.Stats, error)
}

// Tasks is the typed view of a Cache over a task Source. Lists are cached
// under task.Filter.Key and stats under task.StatsKey.
type Tasks struct {
	cache *Cache
	src   Source
}

// NewTasks binds a cache to a source.
func NewTasks(c *Cache, src Source) *Tasks {
	return &Tasks{cache: c, src: src}
}

// Cache exposes the underlying cache for invalidation.
func (t *Tasks) Cache() *Cache { return t.cache }

// List returns the tasks for f. The slice is a copy and may be modified.
func (t *Tasks) List(ctx context.Context, f task.Filter) ([]task.Task, error) {
	v, err := t.cache.Get(ctx, f.Key(), func(ctx context.Context) (any, error) {
		return t.src.ListTasks(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	tasks, ok := v.([]task.Task)
	if !ok {
		return nil, fmt.Errorf("cache: unexpected %T under %s", v, f.Key())
	}
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

// Stats returns the aggregate summary. The maps are shared; treat as
// read-only.
func (t *Tasks) Stats(ctx context.Context) (task.Stats, error) {
	v, err := t.cache.Get(ctx, task.StatsKey, func(ctx context.Context) (any, error) {
		return t.src.Stats(ctx)
	})
	if err != nil {
		return task.Stats{}, err
	}
	s, ok := v.(*task.Stats)
	if !ok {
		return task.Stats{}, fmt.Errorf("cache: unexpected %T under %s", v, task.StatsKey)
	}
	return *s, nil
}
