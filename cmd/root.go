package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/socratic/internal/config"
	"github.com/abhisek/socratic/internal/logging"
	"github.com/abhisek/socratic/internal/store"
)

// cfg and logger are set by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "socratic",
	Short: "Socratic math tutor",
	Long:  "Socratic is a math tutor that guides students with questions instead of answers.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Set here rather than in the literal: loadConfig refers to rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch cmd {
		case versionCmd, updateCmd, hashPasswordCmd:
			return nil
		}
		return loadConfig(cmd)
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, "")
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (overrides SOCRATIC_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SOCRATIC_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(teacherCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// loadConfig reads the config file named by --config, or the default
// path, and applies --db. The logger is built here too, except for the
// terminal client without a log file: log lines would draw over the UI.
func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if err := store.EnsureDir(p); err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		c.Store.Backend = store.BackendSQLite
		c.Store.DSN = p
	}
	cfg = *c

	interactive := cmd == chatCmd || cmd == rootCmd
	if interactive && cfg.Logging.File == "" {
		return nil
	}
	l, _, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
