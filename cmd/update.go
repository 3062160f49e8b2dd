package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/socratic/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update socratic to the latest release",
	Long: `Download a release, verify its checksum, check that the new binary runs
and swap it in. The replaced binary is kept next to the new one so
--rollback can restore it. A running "socratic serve" keeps the old build
until it is restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		target, _ := cmd.Flags().GetString("version")
		downgrade, _ := cmd.Flags().GetBool("allow-downgrade")
		rollback, _ := cmd.Flags().GetBool("rollback")
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(timeout))

		if rollback {
			path, err := checker.Rollback()
			if errors.Is(err, selfupdate.ErrNoBackup) {
				fmt.Println("Nothing to roll back to.")
				return nil
			}
			if err != nil {
				return permissionHint(err)
			}
			fmt.Printf("Restored the previous build at %s\n", path)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		res, err := checker.Update(ctx, &selfupdate.UpdateInput{
			CurrentVersion: version,
			TargetVersion:  target,
			AllowDowngrade: downgrade,
		}, func(p selfupdate.UpdateProgress) {
			fmt.Println(p.Message)
		})
		switch {
		case err == nil:
			fmt.Printf("Updated %s -> %s. Restart any running server.\n", res.From, res.To)
			return nil
		case errors.Is(err, selfupdate.ErrDevBuild):
			fmt.Println("Cannot update a development build. Install a release build first.")
			return nil
		case errors.Is(err, selfupdate.ErrAlreadyLatest):
			fmt.Println("Already running that version.")
			return nil
		case errors.Is(err, selfupdate.ErrContainer):
			fmt.Println("This binary runs in a container. Pull a newer image instead.")
			return nil
		case errors.Is(err, selfupdate.ErrDowngrade):
			return fmt.Errorf("%w (pass --allow-downgrade to install it anyway)", err)
		}
		return permissionHint(err)
	},
}

func permissionHint(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w\n\nTry running: sudo socratic update", err)
	}
	return err
}

func init() {
	updateCmd.Flags().Duration("timeout", 2*time.Minute, "Overall time limit for the update")
	updateCmd.Flags().String("version", "", "Install this release tag instead of the latest")
	updateCmd.Flags().Bool("allow-downgrade", false, "Allow --version to be older than the running build")
	updateCmd.Flags().Bool("rollback", false, "Restore the binary replaced by the last update")
}
