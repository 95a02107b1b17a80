package mutation

import (
	"context"

	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/worker"
)

// UpdateMany applies the same edit to every id, running up to workers
// updates at once. Each id succeeds or fails on its own.
func (c *Coordinator) UpdateMany(ctx context.Context, ids []int64, e task.Edit, workers int) []worker.Result {
	if e.IsEmpty() {
		return failAll(ids, task.ErrEmptyEdit)
	}
	if err := e.Validate(); err != nil {
		return failAll(ids, err)
	}
	return worker.NewPool(workers).Run(ctx, ids, func(ctx context.Context, id int64) error {
		_, err := c.Update(ctx, id, e)
		return err
	})
}

// DeleteMany deletes every id, running up to workers deletes at once.
func (c *Coordinator) DeleteMany(ctx context.Context, ids []int64, workers int) []worker.Result {
	return worker.NewPool(workers).Run(ctx, ids, c.Delete)
}

func failAll(ids []int64, err error) []worker.Result {
	out := make([]worker.Result, len(ids))
	for i, id := range ids {
		out[i] = worker.Result{TaskID: id, Error: err}
	}
	return out
}
