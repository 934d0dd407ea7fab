package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/fixture"
)

// NewFixturesCmd creates the fixtures subcommand, which serves
// the practice site until interrupted.
func NewFixturesCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "fixtures",
		Short:        "Serve the local practice site",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := fixture.NewServer(addr)
			if err := srv.Listen(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving fixtures at %s\n", srv.URL())
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8089", "listen address")
	return cmd
}
