package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/task"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Task counts by status and priority",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	st, err := b.Stats(context.Background())
	if err != nil {
		return failure(err, "Failed to load statistics")
	}

	if st.TotalTasks == 0 {
		fmt.Printf("No tasks. Run: %s\n", cyanStyle.Render(`taskboard task create "title"`))
		return nil
	}

	fmt.Println(boldStyle.Render(fmt.Sprintf("Tasks: %d total", st.TotalTasks)))
	for _, s := range task.Statuses() {
		n := st.StatusStats[s]
		fmt.Printf("  %-14s %s %3d%%\n", s.Label()+":", statusStyle(s).Render(fmt.Sprintf("%4d", n)), st.Percent(n))
	}
	fmt.Println()
	fmt.Println(boldStyle.Render("By priority"))
	for _, p := range task.Priorities() {
		n := st.PriorityStats[p]
		fmt.Printf("  %-14s %s %s\n", p.Label()+":", priorityStyle(p).Render(fmt.Sprintf("%4d", n)), dimStyle.Render(strings.Repeat("▇", st.Percent(n)/5)))
	}
	return nil
}
