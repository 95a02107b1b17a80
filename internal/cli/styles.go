package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/taskboard/internal/task"
)

var (
	boldStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	cyanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	redStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	greenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	columnStyle = lipgloss.NewStyle().Width(30).PaddingRight(2)
)

func statusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusTodo:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true)
	case task.StatusInProgress:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	case task.StatusDone:
		return greenStyle.Bold(true)
	default:
		return dimStyle
	}
}

func priorityStyle(p task.Priority) lipgloss.Style {
	switch p {
	case task.PriorityCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#DC2626")).Bold(true)
	case task.PriorityHigh:
		return redStyle.Bold(true)
	case task.PriorityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	default:
		return dimStyle
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
