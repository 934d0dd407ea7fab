// Command kwrun executes keyword-driven browser test tables and
// writes HTML and JSON reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	root := NewRootCmd()
	root.Version = fmt.Sprintf("%s (%s, %s)", Version, Commit, BuildDate)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errStepsFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
