// Package view holds the dashboard's filter and view-mode selection and maps
// it to the cache key of the task set on screen.
package view

import (
	"context"
	"fmt"

	"github.com/imkarma/taskboard/internal/task"
)

// Mode selects how the current task set is rendered.
type Mode string

const (
	ModeList   Mode = "list"
	ModeKanban Mode = "kanban"
)

// ParseMode accepts "list" or "kanban". Empty means list.
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case "", ModeList:
		return ModeList, nil
	case ModeKanban:
		return ModeKanban, nil
	}
	return "", fmt.Errorf("unknown view mode %q (want list or kanban)", v)
}

// Reader serves task lists by filter, normally from the query cache.
type Reader interface {
	List(ctx context.Context, f task.Filter) ([]task.Task, error)
}

// Result is a task set tagged with the key it was requested under.
type Result struct {
	Key    string
	Filter task.Filter
	Tasks  []task.Task
	Err    error
}

// Controller owns the filter and view mode. It is not safe for concurrent
// use; the UI loop is its only caller.
type Controller struct {
	src    Reader
	filter task.Filter
	mode   Mode
}

// New returns a controller with no filter in the given mode.
func New(src Reader, mode Mode) *Controller {
	if mode == "" {
		mode = ModeList
	}
	return &Controller{src: src, mode: mode}
}

func (c *Controller) Filter() task.Filter { return c.filter }
func (c *Controller) Mode() Mode          { return c.mode }

// Key is the cache key of the task set for the current filter.
func (c *Controller) Key() string { return c.filter.Key() }

// SetStatus filters by status. Empty clears the status filter.
func (c *Controller) SetStatus(s task.Status) error {
	if s != "" && !s.Valid() {
		return fmt.Errorf("%w: %q", task.ErrInvalidStatus, s)
	}
	c.filter.Status = s
	return nil
}

// SetPriority filters by priority. Empty clears the priority filter.
func (c *Controller) SetPriority(p task.Priority) error {
	if p != "" && !p.Valid() {
		return fmt.Errorf("%w: %q", task.ErrInvalidPriority, p)
	}
	c.filter.Priority = p
	return nil
}

// CycleStatus steps through all, todo, in_progress, done and back to all.
func (c *Controller) CycleStatus() {
	c.filter.Status = next(append([]task.Status{""}, task.Statuses()...), c.filter.Status)
}

// CyclePriority steps through all, low, medium, high, critical and back.
func (c *Controller) CyclePriority() {
	c.filter.Priority = next(append([]task.Priority{""}, task.Priorities()...), c.filter.Priority)
}

// Clear drops both filters. The view mode is kept.
func (c *Controller) Clear() { c.filter = task.Filter{} }

// SetMode switches rendering. It never changes the key, so the task set
// already on screen stays valid.
func (c *Controller) SetMode(m Mode) { c.mode = m }

// ToggleMode flips between list and kanban and returns the new mode.
func (c *Controller) ToggleMode() Mode {
	if c.mode == ModeKanban {
		c.mode = ModeList
	} else {
		c.mode = ModeKanban
	}
	return c.mode
}

// Fetch returns a function that loads the task set for the filter as it is
// now. Later filter changes do not affect it, which lets the caller run it
// off the UI loop and check the result with Current.
func (c *Controller) Fetch() func(context.Context) Result {
	f := c.filter
	src := c.src
	return func(ctx context.Context) Result {
		ts, err := src.List(ctx, f)
		return Result{Key: f.Key(), Filter: f, Tasks: ts, Err: err}
	}
}

// Tasks loads the task set for the current filter.
func (c *Controller) Tasks(ctx context.Context) ([]task.Task, error) {
	r := c.Fetch()(ctx)
	return r.Tasks, r.Err
}

// Current reports whether r was fetched for the filter still selected.
// Results for an abandoned filter must be dropped, not rendered.
func (c *Controller) Current(r Result) bool { return r.Key == c.Key() }

func next[T comparable](seq []T, cur T) T {
	for i, v := range seq {
		if v == cur {
			return seq[(i+1)%len(seq)]
		}
	}
	return seq[0]
}
