package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/taskboard/internal/mutation"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/view"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle     = lipgloss.NewStyle().Foreground(clrDim)
	idStyle      = lipgloss.NewStyle().Foreground(clrCyan)
	spinnerStyle = lipgloss.NewStyle().Foreground(clrHighlight)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	columnTargetStyle = columnStyle.BorderForeground(clrYellow)
	columnActiveStyle = columnStyle.BorderForeground(clrHighlight)

	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1).
			Width(40)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.screen {
	case screenLogin:
		content = m.viewLogin()
	default:
		content = m.viewDashboard()
	}

	// Overlay popup if active.
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

// ════════════════════════════════════════════════
// LOGIN
// ════════════════════════════════════════════════

func (m Model) viewLogin() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sign in to taskboard") + "\n")
	b.WriteString(dimStyle.Render(m.board.Client.BaseURL()) + "\n\n")
	b.WriteString("Email:\n")
	b.WriteString(m.login.email.View() + "\n\n")
	b.WriteString("Password:\n")
	b.WriteString(m.login.password.View() + "\n\n")

	if m.login.busy {
		b.WriteString(m.spinner.View() + " signing in...\n\n")
	}
	b.WriteString(m.statusLine())
	b.WriteString(footerDescStyle.Render("enter sign in • tab switch • esc quit"))
	b.WriteString("\n" + dimStyle.Render("No account? Run: taskboard register"))

	box := popupStyle.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// ════════════════════════════════════════════════
// DASHBOARD
// ════════════════════════════════════════════════

func (m Model) viewDashboard() string {
	var b strings.Builder

	b.WriteString(m.header() + "\n\n")

	var body string
	switch {
	case !m.loaded && m.loadErr != "":
		body = errorStyle.Render("  " + m.loadErr)
	case !m.loaded:
		body = "  " + m.spinner.View() + dimStyle.Render(" loading tasks...")
	case m.board.View.Mode() == view.ModeKanban:
		body = m.viewKanban()
	default:
		body = m.viewList()
	}

	if m.showStats {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", m.viewStats())
	}
	b.WriteString(body + "\n")

	b.WriteString("\n" + m.statusLine())
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	f := m.board.View.Filter()
	header := titleStyle.Render("taskboard")
	header += dimStyle.Render(fmt.Sprintf(" — %d tasks", len(m.tasks)))
	header += dimStyle.Render(fmt.Sprintf("  status: %s  priority: %s  view: %s",
		filterLabel(string(f.Status), f.Status.Label()),
		filterLabel(string(f.Priority), f.Priority.Label()),
		m.board.View.Mode()))
	if m.loading && m.loaded {
		header += " " + m.spinner.View()
	}
	if busy := m.busyLabel(); busy != "" {
		header += " " + lipgloss.NewStyle().Foreground(clrYellow).Render(busy)
	}

	right := ""
	if m.board.Session != nil {
		if u, ok := m.board.Session.User(); ok {
			right = dimStyle.Render(u.Username)
			if u.IsAdmin() {
				right += " " + lipgloss.NewStyle().Foreground(clrYellow).Render("admin")
			}
		}
	}
	if right == "" {
		return header
	}
	pad := 2
	if m.width > 0 {
		pad = max(m.width-lipgloss.Width(header)-lipgloss.Width(right), 2)
	}
	return header + strings.Repeat(" ", pad) + right
}

func filterLabel(raw, label string) string {
	if raw == "" {
		return "all"
	}
	return strings.ToLower(label)
}

func (m Model) viewList() string {
	if len(m.tasks) == 0 {
		return dimStyle.Render("  No tasks match. Press ") + footerKeyStyle.Render("c") + dimStyle.Render(" to create one.")
	}

	now := time.Now()
	var b strings.Builder
	for i, t := range m.tasks {
		cursor := "  "
		if i == m.cursor {
			cursor = lipgloss.NewStyle().Foreground(clrHighlight).Render("▸ ")
		}
		line := fmt.Sprintf("  %s%s %s %-42s %-10s %s",
			cursor,
			statusDot(t.Status),
			idStyle.Render(fmt.Sprintf("#%-4d", t.ID)),
			truncate(t.Title, 40),
			priorityStyle(t.Priority).Render(t.Priority.Label()),
			dueBadge(t, now),
		)
		if m.pendingFor(t.ID) {
			line += " " + m.spinner.View()
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewKanban() string {
	cols := m.columns()
	dragID, _, dragging := m.board.Drag.Dragging()

	width := 30
	if m.width > 0 {
		avail := m.width
		if m.showStats {
			avail -= 44
		}
		width = avail/len(cols) - 2
		if width < 22 {
			width = 22
		}
		if width > 48 {
			width = 48
		}
	}

	now := time.Now()
	var rendered []string
	for ci, col := range cols {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s %s", col.Status.Icon(), strings.ToUpper(col.Status.Label()))))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d)", len(col.Tasks))) + "\n\n")

		if len(col.Tasks) == 0 {
			b.WriteString(dimStyle.Render("empty"))
		}
		for ri, t := range col.Tasks {
			selected := !dragging && ci == m.col && ri == m.row
			b.WriteString(m.renderCard(t, selected, dragging && t.ID == dragID, width-4, now) + "\n")
		}

		style := columnStyle
		switch {
		case dragging && ci == m.dropCol:
			style = columnTargetStyle
		case !dragging && ci == m.col:
			style = columnActiveStyle
		}
		rendered = append(rendered, style.Width(width).Render(strings.TrimRight(b.String(), "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderCard(t task.Task, selected, dragged bool, width int, now time.Time) string {
	prefix := "  "
	switch {
	case dragged:
		prefix = lipgloss.NewStyle().Foreground(clrYellow).Render("⇄ ")
	case selected:
		prefix = lipgloss.NewStyle().Foreground(clrHighlight).Render("▸ ")
	}

	title := truncate(t.Title, width-8)
	if selected || dragged {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}
	line := prefix + idStyle.Render(fmt.Sprintf("#%d", t.ID)) + " " + title

	meta := "    " + priorityStyle(t.Priority).Render(t.Priority.Label())
	if due := dueBadge(t, now); due != "" {
		meta += " " + due
	}
	if m.pendingFor(t.ID) {
		meta += " " + m.spinner.View()
	}
	return line + "\n" + meta
}

func (m Model) viewStats() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics") + "\n\n")

	switch {
	case m.statsErr != "" && m.stats == nil:
		b.WriteString(errorStyle.Render(m.statsErr))
		return statsStyle.Render(b.String())
	case m.stats == nil:
		b.WriteString(m.spinner.View() + dimStyle.Render(" loading..."))
		return statsStyle.Render(b.String())
	}

	st := *m.stats
	b.WriteString(fmt.Sprintf("Total tasks: %d\n\n", st.TotalTasks))
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("By status") + "\n")
	for _, s := range task.Statuses() {
		n := st.StatusStats[s]
		b.WriteString(fmt.Sprintf("%-12s %s %3d (%d%%)\n", s.Label(), bar(st.Percent(n)), n, st.Percent(n)))
	}
	b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("By priority") + "\n")
	for _, p := range task.Priorities() {
		n := st.PriorityStats[p]
		b.WriteString(fmt.Sprintf("%-12s %s %3d (%d%%)\n",
			priorityStyle(p).Render(fmt.Sprintf("%-8s", p.Label())), bar(st.Percent(n)), n, st.Percent(n)))
	}
	return statsStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) statusLine() string {
	if m.statusMsg == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render("  "+m.statusMsg) + "\n"
	}
	return statusStyle.Render("  "+m.statusMsg) + "\n"
}

func (m Model) footer() string {
	if _, _, ok := m.board.Drag.Dragging(); ok {
		return renderFooter([]struct{ key, desc string }{
			{"←→", "choose column"},
			{"enter", "drop"},
			{"esc", "cancel"},
		})
	}

	keys := []struct{ key, desc string }{
		{"↑↓", "select"},
	}
	if m.board.View.Mode() == view.ModeKanban {
		keys = append(keys, struct{ key, desc string }{"←→", "column"}, struct{ key, desc string }{"space", "move"})
	}
	keys = append(keys, []struct{ key, desc string }{
		{"c", "new"},
		{"e", "edit"},
		{"x", "delete"},
		{"f", "status"},
		{"p", "priority"},
		{"0", "clear"},
		{"v", "view"},
		{"s", "stats"},
		{"R", "refresh"},
		{"L", "logout"},
		{"q", "quit"},
	}...)
	return renderFooter(keys)
}

// busyLabel names the mutation kinds in flight, e.g. "saving, deleting (3)".
func (m Model) busyLabel() string {
	var kinds []string
	for _, k := range []struct {
		op    mutation.Op
		label string
	}{
		{mutation.OpCreate, "creating"},
		{mutation.OpUpdate, "saving"},
		{mutation.OpDelete, "deleting"},
	} {
		if m.board.Mutations.Busy(k.op) {
			kinds = append(kinds, k.label)
		}
	}
	if len(kinds) == 0 {
		return ""
	}
	return fmt.Sprintf("%s (%d)", strings.Join(kinds, ", "), m.board.Mutations.Pending())
}

func (m Model) pendingFor(id int64) bool {
	return m.pending[pendingKey{mutation.OpUpdate, id}] || m.pending[pendingKey{mutation.OpDelete, id}]
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupForm:
		popup = m.viewFormPopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewFormPopup() string {
	var b strings.Builder

	heading := "Create Task"
	if m.form.editingID != 0 {
		heading = fmt.Sprintf("Edit Task #%d", m.form.editingID)
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(heading) + "\n\n")

	b.WriteString(m.fieldLabel(fieldTitle, "Title:") + "\n")
	b.WriteString(m.form.title.View() + "\n\n")
	b.WriteString(m.fieldLabel(fieldDescription, "Description:") + "\n")
	b.WriteString(m.form.desc.View() + "\n\n")
	b.WriteString(m.fieldLabel(fieldDueDate, "Due date:") + "\n")
	b.WriteString(m.form.due.View() + "\n\n")

	b.WriteString(m.fieldLabel(fieldStatus, "Status:") + " " +
		lipgloss.NewStyle().Bold(true).Render("‹ "+m.form.status.Label()+" ›") + "\n")
	b.WriteString(m.fieldLabel(fieldPriority, "Priority:") + " " +
		priorityStyle(m.form.priority).Bold(true).Render("‹ "+m.form.priority.Label()+" ›") + "\n\n")

	op, id := mutation.OpCreate, int64(0)
	if m.form.editingID != 0 {
		op, id = mutation.OpUpdate, m.form.editingID
	}
	if m.busy(op, id) {
		b.WriteString(m.spinner.View() + " saving...\n\n")
	} else if m.statusErr && m.statusMsg != "" {
		b.WriteString(errorStyle.Render(m.statusMsg) + "\n\n")
	}

	b.WriteString(footerDescStyle.Render("enter save • tab next field • ←→ change • esc cancel"))
	return m.popupBoxStyle().Render(b.String())
}

func (m Model) fieldLabel(field int, label string) string {
	if m.form.field == field {
		return footerKeyStyle.Render(label)
	}
	return label
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete Task")
	b.WriteString(title + "\n\n")
	b.WriteString(fmt.Sprintf("Delete #%d %q?\n", m.deleteID, truncate(m.deleteTitle, 40)))
	b.WriteString("This cannot be undone.\n\n")

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" confirm  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func statusDot(s task.Status) string {
	switch s {
	case task.StatusDone:
		return lipgloss.NewStyle().Foreground(clrGreen).Render("●")
	case task.StatusInProgress:
		return lipgloss.NewStyle().Foreground(clrBlue).Render("◉")
	case task.StatusTodo:
		return dimStyle.Render("○")
	}
	return dimStyle.Render("?")
}

func priorityStyle(p task.Priority) lipgloss.Style {
	switch p {
	case task.PriorityCritical:
		return lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	case task.PriorityHigh:
		return lipgloss.NewStyle().Foreground(clrRed)
	case task.PriorityMedium:
		return lipgloss.NewStyle().Foreground(clrYellow)
	}
	return lipgloss.NewStyle().Foreground(clrSubtle)
}

// dueBadge is "" for tasks without a due date.
func dueBadge(t task.Task, now time.Time) string {
	label, overdue := t.DueIndicator(now)
	if label == "" {
		return ""
	}
	if overdue {
		return lipgloss.NewStyle().Foreground(clrRed).Bold(true).Render("⚠ overdue " + label)
	}
	return dimStyle.Render("due " + label)
}

func bar(pct int) string {
	const width = 12
	filled := pct * width / 100
	return lipgloss.NewStyle().Foreground(clrHighlight).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

func truncate(s string, n int) string {
	if n <= 3 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
