package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the session database",
	Long:  "Creates the taskboard config directory with a default config.yaml and an empty session database.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath := flagConfig
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	// Check if already initialized.
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return fmt.Errorf("taskboard already initialized (%s exists, use --force to overwrite)", cfgPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.OverrideAPIURL(flagAPIURL); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Create the session database (migration runs on open).
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	sess, err := openSession(loaded.SessionPath())
	if err != nil {
		return fmt.Errorf("create session database: %w", err)
	}
	sess.Close()

	fmt.Printf("Initialized taskboard in %s\n", cfgPath)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Printf("  1. Check api_url in the config (now %s)\n", cfg.APIURL)
	fmt.Println("  2. Run: taskboard login --email you@example.com")
	fmt.Println("  3. Run: taskboard ui")

	return nil
}
