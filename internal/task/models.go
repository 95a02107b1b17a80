package task

import (
	"fmt"
	"time"
)

// Status is the workflow state of a task. It doubles as the kanban column id.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Statuses returns all statuses in board order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// Priorities returns all priorities from least to most urgent.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label is the human-readable column title. Unknown values render as-is
// so a server-side addition never breaks the display.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// Icon is the single-glyph status marker used in list rows.
func (s Status) Icon() string {
	switch s {
	case StatusDone:
		return "✓"
	case StatusInProgress:
		return "⟳"
	default:
		return "○"
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Label is the human-readable priority name.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	case "":
		return "Unknown"
	default:
		return string(p)
	}
}

// ParseStatus parses a status. The empty string is accepted and means
// "no constraint" when used in a Filter.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if s == "" || s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q (want todo, in_progress or done)", ErrInvalidStatus, v)
}

// ParsePriority parses a priority. The empty string is accepted and means
// "no constraint" when used in a Filter.
func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if p == "" || p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q (want low, medium, high or critical)", ErrInvalidPriority, v)
}

// Task is one unit of work as returned by the task API.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Desc returns the description or "" when unset.
func (t Task) Desc() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// IsOverdue reports whether the task has a due date strictly before now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

// DueIndicator is the due-date badge for a task: empty when there is no due
// date, otherwise the local date and whether it has passed.
func (t Task) DueIndicator(now time.Time) (label string, overdue bool) {
	if t.DueDate == nil {
		return "", false
	}
	return t.DueDate.Local().Format("2006-01-02"), t.IsOverdue(now)
}

// Stats is the aggregate summary computed by the server.
type Stats struct {
	StatusStats   map[Status]int   `json:"status_stats"`
	PriorityStats map[Priority]int `json:"priority_stats"`
	TotalTasks    int              `json:"total_tasks"`
}

// Percent returns n as a whole-number share of TotalTasks.
func (s Stats) Percent(n int) int {
	if s.TotalTasks == 0 {
		return 0
	}
	return n * 100 / s.TotalTasks
}
