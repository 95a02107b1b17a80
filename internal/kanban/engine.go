package kanban

import (
	"context"
	"errors"
	"fmt"

	"github.com/imkarma/taskboard/internal/task"
)

// State of a drag gesture.
type State int

const (
	Idle State = iota
	Dragging
	DroppedSameColumn
	DroppedCrossColumn
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case DroppedSameColumn:
		return "dropped_same_column"
	case DroppedCrossColumn:
		return "dropped_cross_column"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome says what a drop amounted to.
type Outcome int

const (
	// Cancelled: dropped outside any column, or Cancel was called.
	Cancelled Outcome = iota
	// SameColumn: dropped back where it started. Reordering is not kept.
	SameColumn
	// Stale: the dragged task is no longer on screen.
	Stale
	// Moved: a status update must be issued.
	Moved
)

func (o Outcome) String() string {
	switch o {
	case Cancelled:
		return "cancelled"
	case SameColumn:
		return "same column"
	case Stale:
		return "stale"
	case Moved:
		return "moved"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

var (
	ErrAlreadyDragging = errors.New("a drag is already in progress")
	ErrNotDragging     = errors.New("no drag in progress")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Move is a cross-column drop to be persisted.
type Move struct {
	TaskID int64
	From   task.Status
	To     task.Status
}

// Edit is the single-field update that persists the move.
func (m Move) Edit() task.Edit { return task.StatusEdit(m.To) }

// Engine is the drag state machine:
//
//	Idle -> Dragging -> (DroppedSameColumn | DroppedCrossColumn) -> Idle
//
// Starting a drag has no side effects. Only a cross-column drop of a task
// still on screen yields a Move. The engine never calls the server itself.
type Engine struct {
	state  State
	taskID int64
	source task.Status
	last   State
}

// State returns the current state. Between gestures it is always Idle.
func (e *Engine) State() State { return e.state }

// Last returns the terminal state the previous gesture passed through:
// DroppedSameColumn, DroppedCrossColumn, or Idle if it was cancelled.
func (e *Engine) Last() State { return e.last }

// Dragging returns the task being dragged and its source column.
func (e *Engine) Dragging() (taskID int64, source task.Status, ok bool) {
	if e.state != Dragging {
		return 0, "", false
	}
	return e.taskID, e.source, true
}

// Start picks up taskID from column.
func (e *Engine) Start(taskID int64, column task.Status) error {
	if e.state != Idle {
		return ErrAlreadyDragging
	}
	if ColumnIndex(column) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	e.state = Dragging
	e.taskID = taskID
	e.source = column
	return nil
}

// Cancel abandons the gesture.
func (e *Engine) Cancel() {
	e.reset(Idle)
}

// Drop ends the gesture over dest; nil dest means outside every column.
// visible is the task set currently rendered. The returned Move is only
// meaningful when the outcome is Moved.
func (e *Engine) Drop(dest *task.Status, visible []task.Task) (Move, Outcome) {
	if e.state != Dragging {
		return Move{}, Cancelled
	}
	if dest == nil || ColumnIndex(*dest) < 0 {
		e.reset(Idle)
		return Move{}, Cancelled
	}
	if *dest == e.source {
		e.reset(DroppedSameColumn)
		return Move{}, SameColumn
	}

	m := Move{TaskID: e.taskID, From: e.source, To: *dest}
	found := false
	for _, t := range visible {
		if t.ID == m.TaskID {
			found = true
			break
		}
	}
	e.reset(DroppedCrossColumn)
	if !found {
		return Move{}, Stale
	}
	return m, Moved
}

func (e *Engine) reset(passed State) {
	e.last = passed
	e.state = Idle
	e.taskID = 0
	e.source = ""
}

// Updater issues status updates, normally the mutation coordinator.
type Updater interface {
	Update(ctx context.Context, id int64, e task.Edit) (*task.Task, error)
}

// Commit persists m with exactly one update call.
func Commit(ctx context.Context, u Updater, m Move) (*task.Task, error) {
	return u.Update(ctx, m.TaskID, m.Edit())
}
