package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/report"
)

// NewReportCmd creates the report subcommand, which renders the
// HTML report of a saved JSON report.
func NewReportCmd() *cobra.Command {
	var (
		outDir string
		title  string
	)

	cmd := &cobra.Command{
		Use:          "report <results.json>",
		Short:        "Render an HTML report from a JSON report",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := report.LoadDocument(args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Dir(args[0])
			}

			r := report.NewHTMLReporter(outDir)
			if title != "" {
				r = r.WithTitle(title)
			} else if doc.Case != "" {
				r = r.WithTitle("Keyword-Driven Test Report: " + doc.Case)
			}
			path, err := r.WriteFile(doc.Results)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: next to the JSON file)")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	return cmd
}
