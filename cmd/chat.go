package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/socratic/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the terminal tutoring client",
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		return runChat(cmd, code)
	},
}

// runChat wires the tutor in-process and launches the TUI.
func runChat(cmd *cobra.Command, code string) error {
	ctx := cmd.Context()
	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close(context.Background())

	return app.Run(ctx, app.Options{
		Service: d.service,
		Code:    strings.ToUpper(strings.TrimSpace(code)),
	})
}

func init() {
	chatCmd.Flags().StringP("code", "c", "", "Resume the session with this code")
}
