package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagAPIURL string
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Terminal dashboard for a task service",
	Long: "taskboard — list, filter and edit tasks on a remote task service.\n" +
		"Run `taskboard ui` for the interactive list/kanban dashboard.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/taskboard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Task service URL, overrides config and TASKBOARD_API_URL")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(uiCmd)
}
