package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/fixture"
)

// NewSeedCmd creates the seed subcommand, which makes sure store
// accounts exist before tables that only log in are run.
func NewSeedCmd() *cobra.Command {
	var (
		baseURL  string
		password string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:          "seed <username>...",
		Short:        "Create store accounts through the account API",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := fixture.NewClient(baseURL, fixture.WithTimeout(timeout))
			if err := client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("store at %s is not reachable: %w", client.BaseURL(), err)
			}
			out := cmd.OutOrStdout()
			for _, user := range args {
				created, err := client.EnsureUser(cmd.Context(), user, password)
				if err != nil {
					return fmt.Errorf("failed to seed %s: %w", user, err)
				}
				state := "exists"
				if created {
					state = "created"
				}
				fmt.Fprintf(out, "%s %s\n", state, user)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://127.0.0.1:8089", "store base URL")
	cmd.Flags().StringVar(&password, "password", fixture.DefaultPassword, "account password")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	return cmd
}
