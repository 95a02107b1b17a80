// Package worker runs one job per task id with a bounded number of
// goroutines. It backs the bulk commands (move or delete several tasks at
// once) so a slow server does not serialize the whole batch.
package worker

import (
	"context"
	"sync"
	"time"
)

// Job does the work for a single task id.
type Job func(ctx context.Context, id int64) error

// Result holds the outcome of a single job.
type Result struct {
	TaskID   int64
	Duration time.Duration
	Error    error
}

// OK reports whether the job succeeded.
func (r Result) OK() bool { return r.Error == nil }

// Pool manages parallel job execution.
type Pool struct {
	maxWorkers int
}

// NewPool creates a pool running up to maxWorkers jobs at once. Values below
// one mean sequential execution.
func NewPool(maxWorkers int) *Pool {
	return &Pool{maxWorkers: maxWorkers}
}

// Run executes job for every id and returns one result per id, in the order
// the ids were given. Ids not yet started when ctx is cancelled get ctx's
// error as their result.
func (p *Pool) Run(ctx context.Context, ids []int64, job Job) []Result {
	if p.maxWorkers <= 1 || len(ids) <= 1 {
		return p.runSequential(ctx, ids, job)
	}
	return p.runParallel(ctx, ids, job)
}

func (p *Pool) runSequential(ctx context.Context, ids []int64, job Job) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, execute(ctx, id, job))
	}
	return results
}

func (p *Pool) runParallel(ctx context.Context, ids []int64, job Job) []Result {
	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup

	results := make([]Result, len(ids))

	for i, id := range ids {
		select {
		case sem <- struct{}{}: // Acquire worker slot.
		case <-ctx.Done():
			results[i] = Result{TaskID: id, Error: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(idx int, id int64) {
			defer wg.Done()
			defer func() { <-sem }() // Release worker slot.
			results[idx] = execute(ctx, id, job)
		}(i, id)
	}

	wg.Wait()
	return results
}

func execute(ctx context.Context, id int64, job Job) Result {
	if err := ctx.Err(); err != nil {
		return Result{TaskID: id, Error: err}
	}
	start := time.Now()
	err := job(ctx, id)
	return Result{TaskID: id, Duration: time.Since(start), Error: err}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
