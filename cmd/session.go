package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/socratic/internal/tutor"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and maintain stored sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Print the teacher summary of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		s, err := b.Get(ctx, strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		sum := tutor.Summarize(s)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}

		fmt.Printf("Session:   %s\n", sum.Code)
		fmt.Printf("Created:   %s\n", sum.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if sum.ExpiresAt != nil {
			fmt.Printf("Expires:   %s\n", sum.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Streaks:   %d\n", sum.StreakCompletions)
		fmt.Printf("Hints:     %d\n", sum.TotalHints)
		fmt.Println()

		if len(sum.Problems) == 0 {
			fmt.Println("No problems submitted.")
			return nil
		}
		fmt.Printf("%-4s  %-32s  %-10s  %5s  %5s  %5s  %6s  %s\n",
			"ID", "Problem", "Category", "Turns", "Hints", "Stuck", "Quiz", "Flag")
		fmt.Println(strings.Repeat("─", 90))
		flagged := make(map[int]bool, len(sum.FlaggedProblems))
		for _, id := range sum.FlaggedProblems {
			flagged[id] = true
		}
		for _, p := range sum.Problems {
			quiz := "-"
			if p.MCScore != nil {
				quiz = fmt.Sprintf("%.0f%%", *p.MCScore*100)
			}
			flag := ""
			if flagged[p.ID] {
				flag = "review"
			}
			fmt.Printf("%-4d  %-32s  %-10s  %5d  %5d  %5d  %6s  %s\n",
				p.ID, truncate(p.Text, 32), p.Category, p.StudentTurns, p.HintsUsed, p.MaxStuckTurns, quiz, flag)
		}
		return nil
	},
}

var sessionPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		n, err := b.PurgeExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Printf("Removed %d expired session(s).\n", n)
		return nil
	},
}

func init() {
	sessionShowCmd.Flags().Bool("json", false, "Print the summary as JSON")

	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionPurgeCmd)
}
