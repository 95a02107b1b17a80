// Package kanban partitions tasks into status columns and turns a
// drag-and-drop gesture into at most one status update.
package kanban

import "github.com/imkarma/taskboard/internal/task"

// Column is one status lane with its tasks in server order.
type Column struct {
	Status task.Status
	Tasks  []task.Task
}

// Columns lists the lane statuses left to right.
func Columns() []task.Status { return task.Statuses() }

// Partition splits ts into one column per status, keeping the order the
// server returned. Tasks with a status outside the known set appear in no
// column.
func Partition(ts []task.Task) []Column {
	cols := make([]Column, 0, len(Columns()))
	idx := make(map[task.Status]int, len(Columns()))
	for i, s := range Columns() {
		cols = append(cols, Column{Status: s})
		idx[s] = i
	}
	for _, t := range ts {
		if i, ok := idx[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// ColumnIndex returns the position of status s, or -1.
func ColumnIndex(s task.Status) int {
	for i, c := range Columns() {
		if c == s {
			return i
		}
	}
	return -1
}
