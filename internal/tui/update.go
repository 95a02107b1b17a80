package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/mutation"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/view"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.handleLoginKey(msg)
		}
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ExpiredMsg:
		if m.screen == screenDashboard {
			m.expire()
			return m, textinput.Blink
		}
		return m, nil

	case tasksLoadedMsg:
		r := msg.Result
		if !m.board.View.Current(r) {
			// Answer for a filter that is no longer selected.
			log.GetLogger().WithField("key", r.Key).Debug("dropping stale task list")
			return m, nil
		}
		if msg.seq < m.tasksSeq {
			// Overtaken by a newer fetch for the same filter.
			log.GetLogger().WithFields(logrus.Fields{"key": r.Key, "seq": msg.seq}).Debug("dropping late task list")
			return m, nil
		}
		m.tasksSeq = msg.seq
		m.loading = false
		if r.Err != nil {
			return m.failed(r.Err, "Failed to load tasks")
		}
		m.tasks = r.Tasks
		m.tasksKey = r.Key
		m.loaded = true
		m.loadErr = ""
		m.clampCursor()
		return m, nil

	case statsLoadedMsg:
		if msg.seq < m.statsSeq {
			return m, nil
		}
		m.statsSeq = msg.seq
		if msg.err != nil {
			return m.failed(msg.err, "Failed to load statistics")
		}
		st := msg.stats
		m.stats = &st
		m.statsErr = ""
		return m, nil

	case savedMsg:
		if msg.editingID == 0 {
			m.end(mutation.OpCreate, 0)
		} else {
			m.end(mutation.OpUpdate, msg.editingID)
		}
		if msg.err != nil {
			return m.failed(msg.err, "Failed to save task")
		}
		m.popup = popupNone
		if msg.editingID == 0 {
			m.setStatus("Created #" + itoa(msg.task.ID) + ": " + msg.task.Title)
		} else {
			m.setStatus("Saved #" + itoa(msg.task.ID))
		}
		return m, m.reload()

	case deletedMsg:
		m.end(mutation.OpDelete, msg.id)
		if msg.err != nil {
			return m.failed(msg.err, "Failed to delete task")
		}
		m.setStatus("Deleted #" + itoa(msg.id))
		return m, m.reload()

	case movedMsg:
		m.end(mutation.OpUpdate, msg.move.TaskID)
		if msg.err != nil {
			return m.failed(msg.err, "Failed to move task")
		}
		m.setStatus("Moved #" + itoa(msg.move.TaskID) + " to " + msg.move.To.Label())
		return m, m.reload()

	case loggedInMsg:
		m.login.busy = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				m.setError("Invalid email or password")
			} else {
				m.setError(api.Message(msg.err, "Login failed"))
			}
			return m, nil
		}
		m.screen = screenDashboard
		m.login.reset()
		m.setStatus("Signed in as " + msg.user.Username)
		return m, m.reload()

	case refreshTickMsg:
		cmds := []tea.Cmd{m.scheduleRefresh()}
		if m.screen == screenDashboard && !m.loading && m.board.Drag.State() == kanban.Idle {
			m.board.Refresh()
			cmds = append(cmds, m.reload())
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// failed renders err inline. A 401 sends the user back to the login screen.
func (m Model) failed(err error, fallback string) (tea.Model, tea.Cmd) {
	if errors.Is(err, api.ErrUnauthorized) {
		if m.screen == screenDashboard {
			m.expire()
			return m, textinput.Blink
		}
		return m, nil
	}
	text := api.Message(err, fallback)
	switch fallback {
	case "Failed to load tasks":
		m.loadErr = text
	case "Failed to load statistics":
		m.statsErr = text
	}
	m.setError(text)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While dragging only drag keys apply.
	if _, _, ok := m.board.Drag.Dragging(); ok {
		return m.handleDragKey(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	// Navigation.
	case "j", "down":
		m.cursor++
		m.row++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.row--
		m.clampCursor()
	case "h", "left":
		m.col--
		m.row = 0
		m.clampCursor()
	case "l", "right":
		m.col++
		m.row = 0
		m.clampCursor()

	// Filters and view mode.
	case "f":
		m.board.View.CycleStatus()
		return m, m.loadTasks()
	case "p":
		m.board.View.CyclePriority()
		return m, m.loadTasks()
	case "0":
		m.board.View.Clear()
		return m, m.loadTasks()
	case "v":
		mode := m.board.View.ToggleMode()
		m.setStatus("View: " + string(mode))
		m.clampCursor()
		return m, nil

	case "s":
		m.showStats = !m.showStats
		if m.showStats {
			return m, m.loadStats()
		}

	case "R":
		m.board.Refresh()
		return m, m.reload()

	// Mutations.
	case "c", "ctrl+n":
		if m.busy(mutation.OpCreate, 0) {
			m.setStatus("Still saving the previous task...")
			return m, nil
		}
		m.form.open(task.NewDraft(), 0)
		m.popup = popupForm
		return m, textinput.Blink

	case "e", "enter":
		t := m.selected()
		if t == nil {
			return m, nil
		}
		if m.busy(mutation.OpUpdate, t.ID) {
			m.setStatus("#" + itoa(t.ID) + " is still saving...")
			return m, nil
		}
		m.form.open(task.DraftFrom(*t), t.ID)
		m.popup = popupForm
		return m, textinput.Blink

	case "x", "delete":
		t := m.selected()
		if t == nil {
			return m, nil
		}
		if m.busy(mutation.OpDelete, t.ID) {
			m.setStatus("#" + itoa(t.ID) + " is already being deleted")
			return m, nil
		}
		m.deleteID = t.ID
		m.deleteTitle = t.Title
		m.popup = popupConfirmDelete
		return m, nil

	case " ":
		if m.board.View.Mode() != view.ModeKanban {
			return m, nil
		}
		t := m.selected()
		if t == nil {
			return m, nil
		}
		if m.busy(mutation.OpUpdate, t.ID) {
			m.setStatus("#" + itoa(t.ID) + " is still saving...")
			return m, nil
		}
		if err := m.board.Drag.Start(t.ID, t.Status); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.dropCol = m.col

	case "L":
		if err := m.board.Logout(); err != nil {
			m.setError("Logout failed: " + err.Error())
			return m, nil
		}
		m.expire()
		m.setStatus("Signed out")
		return m, textinput.Blink
	}

	return m, nil
}

// --- Drag keys ---

func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := kanban.Columns()
	switch msg.String() {
	case "h", "left":
		if m.dropCol > 0 {
			m.dropCol--
		}
	case "l", "right":
		if m.dropCol < len(cols)-1 {
			m.dropCol++
		}
	case "esc", " ":
		m.board.Drag.Cancel()
		m.setStatus("Move cancelled")
	case "enter":
		dest := cols[m.dropCol]
		mv, out := m.board.Drag.Drop(&dest, m.tasks)
		switch out {
		case kanban.Moved:
			m.begin(mutation.OpUpdate, mv.TaskID)
			m.col = m.dropCol
			return m, m.doMove(mv)
		case kanban.Stale:
			m.setError("Task is no longer on the board")
		}
	}
	return m, nil
}

// --- Popup keys ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupForm:
		return m.handleFormPopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	}
	return m, nil
}

func (m Model) handleFormPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "tab", "down":
		m.form.focus(m.form.field + 1)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.form.focus(m.form.field - 1)
		return m, textinput.Blink
	case "enter":
		d := m.form.draft()
		if _, err := d.Validate(); err != nil {
			m.setError(api.Message(err, "Failed to save task"))
			return m, nil
		}
		op, id := mutation.OpCreate, int64(0)
		if m.form.editingID != 0 {
			op, id = mutation.OpUpdate, m.form.editingID
		}
		if m.busy(op, id) {
			m.setStatus("Still saving...")
			return m, nil
		}
		m.begin(op, id)
		m.setStatus("Saving...")
		return m, m.doSave(d, m.form.editingID)
	}

	if m.form.field == fieldStatus || m.form.field == fieldPriority {
		switch msg.String() {
		case "left", "h":
			m.form.cycle(-1)
		case "right", "l", " ":
			m.form.cycle(1)
		}
		return m, nil
	}

	// Forward to the active text input.
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		if m.busy(mutation.OpDelete, m.deleteID) {
			return m, nil
		}
		m.begin(mutation.OpDelete, m.deleteID)
		return m, m.doDelete(m.deleteID)
	case "n", "esc":
		m.popup = popupNone
		return m, nil
	}
	return m, nil
}

// --- Login keys ---

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.login.focus(m.login.field + 1)
		return m, textinput.Blink
	case "enter":
		if m.login.busy {
			return m, nil
		}
		email := strings.TrimSpace(m.login.email.Value())
		password := m.login.password.Value()
		if email == "" || password == "" {
			m.setError("Email and password are required")
			return m, nil
		}
		m.login.busy = true
		m.setStatus("Signing in...")
		return m, m.doLogin(email, password)
	}

	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}
