package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/task"
)

var boardPriority string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardPriority, "priority", "p", "", "Only tasks with this priority")
}

func runBoard(cmd *cobra.Command, args []string) error {
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	if err := b.View.SetPriority(task.Priority(boardPriority)); err != nil {
		return err
	}
	tasks, err := b.List(context.Background())
	if err != nil {
		return failure(err, "Failed to load tasks")
	}

	if len(tasks) == 0 {
		fmt.Printf("%s Create one: %s\n", dimStyle.Render("Board is empty."), cyanStyle.Render(`taskboard task create "title"`))
		return nil
	}

	fmt.Println(renderBoard(kanban.Partition(tasks), time.Now()))

	// Summary line.
	overdue := 0
	for _, t := range tasks {
		if t.Status != task.StatusDone && t.IsOverdue(time.Now()) {
			overdue++
		}
	}
	summary := boldStyle.Render(fmt.Sprintf("%d tasks", len(tasks)))
	if overdue > 0 {
		summary += "  " + redStyle.Render(fmt.Sprintf("⚠ %d overdue", overdue))
	}
	fmt.Println(summary)
	return nil
}

// renderBoard lays the columns out side by side.
func renderBoard(cols []kanban.Column, now time.Time) string {
	width := columnStyle.GetWidth() - columnStyle.GetPaddingRight()
	rendered := make([]string, 0, len(cols))
	for _, c := range cols {
		var sb strings.Builder
		header := fmt.Sprintf("%s %s (%d)", c.Status.Icon(), strings.ToUpper(c.Status.Label()), len(c.Tasks))
		sb.WriteString(statusStyle(c.Status).Render(header))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(strings.Repeat("─", width)))
		sb.WriteString("\n")
		for _, t := range c.Tasks {
			idStr := fmt.Sprintf("#%d", t.ID)
			sb.WriteString(priorityStyle(t.Priority).Render(idStr))
			sb.WriteString(" ")
			sb.WriteString(truncate(t.Title, width-len(idStr)-1))
			sb.WriteString("\n")
			if label, overdue := t.DueIndicator(now); label != "" {
				if overdue {
					sb.WriteString("    " + redStyle.Render("⚠ "+label))
				} else {
					sb.WriteString("    " + dimStyle.Render("due "+label))
				}
				sb.WriteString("\n")
			}
		}
		rendered = append(rendered, columnStyle.Render(sb.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
