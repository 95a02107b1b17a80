package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/task"
)

// Task form fields in tab order.
const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldStatus
	fieldPriority
	numFields
)

// taskForm is the create/edit popup. editingID is zero when creating.
type taskForm struct {
	title    textinput.Model
	desc     textinput.Model
	due      textinput.Model
	status   task.Status
	priority task.Priority
	field    int

	editingID int64
}

func newTaskForm() taskForm {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = task.MaxTitleLen
	ti.Width = 50

	di := textinput.New()
	di.Placeholder = "Description (optional)..."
	di.CharLimit = task.MaxDescriptionLen
	di.Width = 50

	dd := textinput.New()
	dd.Placeholder = "YYYY-MM-DD (optional)"
	dd.CharLimit = 25
	dd.Width = 25

	return taskForm{
		title:    ti,
		desc:     di,
		due:      dd,
		status:   task.StatusTodo,
		priority: task.PriorityMedium,
	}
}

// open fills the form from d and focuses the title.
func (f *taskForm) open(d task.Draft, editingID int64) {
	f.title.SetValue(d.Title)
	f.desc.SetValue(d.Description)
	f.due.SetValue(d.DueDate)
	f.status = task.Status(d.Status)
	f.priority = task.Priority(d.Priority)
	f.editingID = editingID
	f.focus(fieldTitle)
}

func (f taskForm) draft() task.Draft {
	return task.Draft{
		Title:       f.title.Value(),
		Description: f.desc.Value(),
		Status:      string(f.status),
		Priority:    string(f.priority),
		DueDate:     f.due.Value(),
	}
}

func (f *taskForm) focus(field int) {
	f.field = (field + numFields) % numFields
	f.title.Blur()
	f.desc.Blur()
	f.due.Blur()
	switch f.field {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.desc.Focus()
	case fieldDueDate:
		f.due.Focus()
	}
}

// cycle steps the status or priority selector by dir.
func (f *taskForm) cycle(dir int) {
	switch f.field {
	case fieldStatus:
		f.status = step(task.Statuses(), f.status, dir)
	case fieldPriority:
		f.priority = step(task.Priorities(), f.priority, dir)
	}
}

func (f taskForm) update(msg tea.Msg) (taskForm, tea.Cmd) {
	var cmd tea.Cmd
	switch f.field {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.desc, cmd = f.desc.Update(msg)
	case fieldDueDate:
		f.due, cmd = f.due.Update(msg)
	}
	return f, cmd
}

func step[T comparable](seq []T, cur T, dir int) T {
	for i, v := range seq {
		if v == cur {
			return seq[(i+dir+len(seq))%len(seq)]
		}
	}
	return seq[0]
}

// loginForm is the sign-in screen.
type loginForm struct {
	email    textinput.Model
	password textinput.Model
	field    int
	busy     bool
}

func newLoginForm() loginForm {
	ei := textinput.New()
	ei.Placeholder = "you@example.com"
	ei.CharLimit = 254
	ei.Width = 40

	pi := textinput.New()
	pi.Placeholder = "password"
	pi.EchoMode = textinput.EchoPassword
	pi.EchoCharacter = '•'
	pi.CharLimit = 128
	pi.Width = 40

	return loginForm{email: ei, password: pi}
}

func (f *loginForm) focus(field int) {
	f.field = field % 2
	if f.field == 0 {
		f.password.Blur()
		f.email.Focus()
	} else {
		f.email.Blur()
		f.password.Focus()
	}
}

func (f *loginForm) reset() {
	f.password.Reset()
	f.busy = false
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.field == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}
