package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/fixture"
	"digital.vasic.keywords/pkg/sheet"
)

// NewInitCmd creates the init subcommand, which writes the
// sign-up and log-in table for the fixture store.
func NewInitCmd() *cobra.Command {
	var (
		baseURL   string
		username  string
		password  string
		sheetName string
		force     bool
	)

	cmd := &cobra.Command{
		Use:          "init <file.xlsx>",
		Short:        "Write a sign-up and log-in test table with a unique username",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
				return fmt.Errorf("init writes .xlsx files, got %q", ext)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if username == "" {
				username = fixture.UniqueUsername()
			}

			steps := fixture.SignupLoginSteps(baseURL, username, password)
			if err := sheet.WriteXLSX(path, sheetName, steps); err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"Wrote %d steps to %s (username %s)\n",
				len(steps), path, username,
			)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&baseURL, "base-url", "http://127.0.0.1:8089", "URL of the store under test")
	fl.StringVar(&username, "username", "", "username to sign up (default: generated)")
	fl.StringVar(&password, "password", fixture.DefaultPassword, "password to sign up with")
	fl.StringVar(&sheetName, "sheet", "Sheet1", "sheet name")
	fl.BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
