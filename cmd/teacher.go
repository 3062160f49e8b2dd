package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/socratic/internal/auth"
)

var teacherCmd = &cobra.Command{
	Use:   "teacher",
	Short: "Teacher account utilities",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a teacher password for auth.teacher_password_hash",
	Long:  "Reads a password from stdin and prints its bcrypt hash.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return errors.New("password must not be empty")
		}
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	teacherCmd.AddCommand(hashPasswordCmd)
}
