package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/logging"
)

// NewRootCmd creates the root kwrun command with all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kwrun",
		Short:         "kwrun - keyword-driven browser test runner",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(NewRunCmd(launchChrome))
	root.AddCommand(NewInitCmd())
	root.AddCommand(NewFixturesCmd())
	root.AddCommand(NewReportCmd())
	root.AddCommand(NewSeedCmd())
	return root
}

// consoleLogger returns a colored stdout logger when w is the
// process stdout and a plain one otherwise.
func consoleLogger(w io.Writer, verbose bool) *logging.ConsoleLogger {
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		return logging.NewConsoleLogger(verbose)
	}
	return logging.NewConsoleLoggerTo(w, verbose)
}
