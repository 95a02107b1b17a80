// Package tui is the interactive dashboard. All state lives in Model and is
// only touched from bubbletea's update loop; remote calls run as commands
// and come back as messages tagged with what they were issued for.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/taskboard/internal/api"
	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/mutation"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/view"
)

// screen is the top-level page.
type screen int

const (
	screenLogin screen = iota
	screenDashboard
)

// popup is an overlay on the dashboard.
type popup int

const (
	popupNone popup = iota
	popupForm
	popupConfirmDelete
)

// Options tunes the dashboard.
type Options struct {
	// Refresh is the background refetch interval; zero disables it.
	Refresh time.Duration
}

// Model is the top-level bubbletea model.
type Model struct {
	board   *board.Board
	refresh time.Duration
	width   int
	height  int

	screen screen
	popup  popup

	// Task set on screen and the cache key it was fetched under.
	tasks    []task.Task
	tasksKey string
	// issued numbers every fetch; tasksSeq and statsSeq are the newest
	// applied. Results numbered below them arrived late and are dropped.
	issued   *uint64
	tasksSeq uint64
	statsSeq uint64
	loaded   bool
	loading  bool
	loadErr  string

	// List cursor, kanban cursor, and drop target while dragging.
	cursor  int
	col     int
	row     int
	dropCol int

	showStats bool
	stats     *task.Stats
	statsErr  string

	form  taskForm
	login loginForm

	deleteID    int64
	deleteTitle string

	// pending holds (op, id) pairs dispatched but not yet answered.
	pending map[pendingKey]bool

	spinner    spinner.Model
	statusMsg  string
	statusErr  bool
	statusTime time.Time
	quitting   bool
}

type pendingKey struct {
	op mutation.Op
	id int64
}

// New creates the dashboard model. It opens on the login screen when no
// session is stored.
func New(b *board.Board, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		board:   b,
		refresh: opts.Refresh,
		screen:  screenDashboard,
		pending: make(map[pendingKey]bool),
		issued:  new(uint64),
		spinner: sp,
		form:    newTaskForm(),
		login:   newLoginForm(),
	}
	if b.Session != nil && !b.Session.LoggedIn() {
		m.screen = screenLogin
		m.login.focus(0)
	}
	return m
}

// ExpiredMsg tells the dashboard the session was cleared by a 401. Send it
// with Program.Send from the board's OnExpired hook.
type ExpiredMsg struct{}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.scheduleRefresh()}
	if m.screen == screenDashboard {
		cmds = append(cmds, m.loadTasks())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

type tasksLoadedMsg struct {
	view.Result
	seq uint64
}

type statsLoadedMsg struct {
	stats task.Stats
	err   error
	seq   uint64
}

type savedMsg struct {
	task      *task.Task
	editingID int64
	err       error
}

type deletedMsg struct {
	id  int64
	err error
}

type movedMsg struct {
	move kanban.Move
	task *task.Task
	err  error
}

type loggedInMsg struct {
	user *api.User
	err  error
}

type refreshTickMsg time.Time

func (m Model) scheduleRefresh() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshTickMsg(t) })
}

// loadTasks fetches the task set for the filter selected right now.
func (m *Model) loadTasks() tea.Cmd {
	m.loading = true
	seq := m.nextSeq()
	fetch := m.board.View.Fetch()
	return func() tea.Msg {
		return tasksLoadedMsg{Result: fetch(context.Background()), seq: seq}
	}
}

func (m Model) loadStats() tea.Cmd {
	b := m.board
	seq := m.nextSeq()
	return func() tea.Msg {
		st, err := b.Stats(context.Background())
		return statsLoadedMsg{stats: st, err: err, seq: seq}
	}
}

func (m Model) nextSeq() uint64 {
	*m.issued++
	return *m.issued
}

// reload refetches whatever is on screen.
func (m *Model) reload() tea.Cmd {
	cmds := []tea.Cmd{m.loadTasks()}
	if m.showStats {
		cmds = append(cmds, m.loadStats())
	}
	return tea.Batch(cmds...)
}

func (m Model) doSave(d task.Draft, editingID int64) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.Save(context.Background(), d, editingID)
		return savedMsg{task: t, editingID: editingID, err: err}
	}
}

func (m Model) doDelete(id int64) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		return deletedMsg{id: id, err: b.Delete(context.Background(), id)}
	}
}

func (m Model) doMove(mv kanban.Move) tea.Cmd {
	coord := m.board.Mutations
	return func() tea.Msg {
		t, err := kanban.Commit(context.Background(), coord, mv)
		return movedMsg{move: mv, task: t, err: err}
	}
}

func (m Model) doLogin(email, password string) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		u, err := b.Login(context.Background(), email, password)
		return loggedInMsg{user: u, err: err}
	}
}

// busy reports whether op on id is already dispatched or still in flight.
func (m Model) busy(op mutation.Op, id int64) bool {
	return m.pending[pendingKey{op, id}] || m.board.Mutations.BusyFor(op, id)
}

func (m *Model) begin(op mutation.Op, id int64) { m.pending[pendingKey{op, id}] = true }
func (m *Model) end(op mutation.Op, id int64)   { delete(m.pending, pendingKey{op, id}) }

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(msg string) {
	m.statusMsg = msg
	m.statusErr = true
	m.statusTime = time.Now()
}

// columns partitions the task set on screen.
func (m Model) columns() []kanban.Column {
	return kanban.Partition(m.tasks)
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	cols := m.columns()
	if m.col < 0 {
		m.col = 0
	}
	if m.col >= len(cols) {
		m.col = len(cols) - 1
	}
	if m.row >= len(cols[m.col].Tasks) {
		m.row = len(cols[m.col].Tasks) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// selected returns the task under the cursor in the current view mode.
func (m Model) selected() *task.Task {
	if m.board.View.Mode() == view.ModeKanban {
		cols := m.columns()
		if m.col < len(cols) && m.row < len(cols[m.col].Tasks) {
			t := cols[m.col].Tasks[m.row]
			return &t
		}
		return nil
	}
	if m.cursor < len(m.tasks) {
		t := m.tasks[m.cursor]
		return &t
	}
	return nil
}

// expire drops back to the login screen after the session was cleared.
func (m *Model) expire() {
	m.screen = screenLogin
	m.popup = popupNone
	m.board.Drag.Cancel()
	m.tasks = nil
	m.stats = nil
	m.loaded = false
	m.login.reset()
	m.login.focus(0)
	m.setError("Session expired. Please log in again.")
}
