// Package mutation turns task writes into remote calls and keeps the query
// cache honest: the task and stats namespaces are invalidated only after the
// server confirmed the write. Each operation exposes a busy indicator so
// callers can refuse to re-trigger something that is still in flight.
package mutation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/task"
)

// Writer is the write side of the task service.
type Writer interface {
	CreateTask(ctx context.Context, e task.Edit) (*task.Task, error)
	UpdateTask(ctx context.Context, id int64, e task.Edit) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Invalidator marks cached queries stale by key prefix.
type Invalidator interface {
	Invalidate(prefix string)
}

// Op names a kind of mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type target struct {
	op Op
	id int64
}

// Coordinator runs mutations. It does not serialize calls: two updates of
// the same task may be in flight at once and resolve in either order.
type Coordinator struct {
	w   Writer
	inv Invalidator
	log *logrus.Logger

	mu       sync.Mutex
	inflight map[Op]int
	byTarget map[target]int
}

// New creates a coordinator writing through w and invalidating inv.
func New(w Writer, inv Invalidator) *Coordinator {
	return &Coordinator{
		w:        w,
		inv:      inv,
		log:      log.GetLogger(),
		inflight: make(map[Op]int),
		byTarget: make(map[target]int),
	}
}

// Create validates e as a new task and sends it. The returned task carries
// the server-assigned id and creation time.
func (c *Coordinator) Create(ctx context.Context, e task.Edit) (*task.Task, error) {
	if err := e.ValidateCreate(); err != nil {
		return nil, err
	}
	var created *task.Task
	err := c.run(ctx, OpCreate, 0, func(ctx context.Context) error {
		t, err := c.w.CreateTask(ctx, e)
		created = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial edit to task id.
func (c *Coordinator) Update(ctx context.Context, id int64, e task.Edit) (*task.Task, error) {
	if e.IsEmpty() {
		return nil, task.ErrEmptyEdit
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	var updated *task.Task
	err := c.run(ctx, OpUpdate, id, func(ctx context.Context) error {
		t, err := c.w.UpdateTask(ctx, id, e)
		updated = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes task id. A task that is already gone is an error, not a
// success.
func (c *Coordinator) Delete(ctx context.Context, id int64) error {
	return c.run(ctx, OpDelete, id, func(ctx context.Context) error {
		return c.w.DeleteTask(ctx, id)
	})
}

// Resync marks every task list and the stats stale without writing
// anything. It backs explicit refreshes and the dashboard's refresh tick,
// which pick up changes made by other clients.
func (c *Coordinator) Resync() {
	c.inv.Invalidate(task.TasksKeyPrefix)
	c.inv.Invalidate(task.StatsKey)
	c.log.Debug("resync: task and stats queries marked stale")
}

// Busy reports whether any mutation of kind op is in flight.
func (c *Coordinator) Busy(op Op) bool {
	c.lock()
	defer c.unlock()
	return c.inflight[op] > 0
}

// BusyFor reports whether op on task id is in flight. For OpCreate pass 0.
func (c *Coordinator) BusyFor(op Op, id int64) bool {
	c.lock()
	defer c.unlock()
	return c.byTarget[target{op, id}] > 0
}

// Pending returns the number of mutations in flight.
func (c *Coordinator) Pending() int {
	c.lock()
	defer c.unlock()
	n := 0
	for _, v := range c.inflight {
		n += v
	}
	return n
}

func (c *Coordinator) run(ctx context.Context, op Op, id int64, call func(context.Context) error) error {
	tgt := target{op, id}
	c.lock()
	c.inflight[op]++
	c.byTarget[tgt]++
	c.unlock()

	defer func() {
		c.lock()
		c.inflight[op]--
		if c.byTarget[tgt]--; c.byTarget[tgt] <= 0 {
			delete(c.byTarget, tgt)
		}
		c.unlock()
	}()

	entry := c.log.WithFields(logrus.Fields{
		"mutation": uuid.NewString(),
		"op":       op,
		"task":     id,
	})
	start := time.Now()

	if err := call(ctx); err != nil {
		entry.WithField("duration", time.Since(start).Round(time.Millisecond)).Warnf("mutation failed: %v", err)
		return err
	}

	c.inv.Invalidate(task.TasksKeyPrefix)
	c.inv.Invalidate(task.StatsKey)
	entry.WithField("duration", time.Since(start).Round(time.Millisecond)).Info("mutation applied")
	return nil
}

// SetLogger replaces the logger used for mutation records.
func (c *Coordinator) SetLogger(l *logrus.Logger) { c.log = l }

func (c *Coordinator) lock()   { c.mu.Lock() }
func (c *Coordinator) unlock() { c.mu.Unlock() }
