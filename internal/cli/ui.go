package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open interactive TUI dashboard",
	Long:  "Opens the interactive dashboard: task list or kanban board with filters, stats, a task form and drag-to-move between columns.",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The program is created after the board, so the expiry hook reaches
	// it through this variable.
	var p *tea.Program
	b, logs, err := openBoard(cfg, true, func() {
		if p != nil {
			p.Send(tui.ExpiredMsg{})
		}
	})
	if err != nil {
		return err
	}
	defer logs.Close()
	defer b.Close()

	model := tui.New(b, tui.Options{Refresh: cfg.Refresh()})
	p = tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
