package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/config"
	"digital.vasic.keywords/pkg/env"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/notify"
	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/runner"
	"digital.vasic.keywords/pkg/sheet"
)

// errStepsFailed is returned when the run completed but at
// least one case failed. main exits 1 without printing it.
var errStepsFailed = errors.New("one or more test steps failed")

// launcher opens a browser session with the given options.
type launcher func(
	ctx context.Context, opts browser.Options,
) (browser.Session, func(), error)

func launchChrome(
	ctx context.Context, opts browser.Options,
) (browser.Session, func(), error) {
	session, release, err := browser.Launch(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return session, release, nil
}

type runFlags struct {
	configPath     string
	sheet          string
	headless       bool
	remoteURL      string
	reportsDir     string
	jsonReports    bool
	monitorAddr    string
	notifyURLs     []string
	onlyOnFailure  bool
	parallel       int
	envFile        string
	logsDir        string
	verbose        bool
	caseTimeout    time.Duration
	staleThreshold time.Duration
	history        string
	noExpand       bool
}

// NewRunCmd creates the run subcommand.
func NewRunCmd(launch launcher) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:          "run [file...]",
		SilenceUsage: true,
		Short:        "Run keyword test tables (xlsx, csv, yaml, json)",
		Long: "Run executes every table given as an argument, or the " +
			"cases listed in the configuration file, and writes one " +
			"HTML report per case. It exits 1 if any step failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runCases(cmd, cfg, &f, args, launch)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "configuration file (YAML)")
	fl.StringVarP(&f.sheet, "sheet", "s", "", "sheet name for spreadsheet files")
	fl.BoolVar(&f.headless, "headless", true, "run the browser without a window")
	fl.StringVar(&f.remoteURL, "remote-url", "", "DevTools websocket URL of a running browser")
	fl.StringVar(&f.reportsDir, "reports-dir", "", "directory for reports and screenshots")
	fl.BoolVar(&f.jsonReports, "json", false, "also write JSON reports")
	fl.StringVar(&f.monitorAddr, "monitor-addr", "", "serve live events on this address")
	fl.StringSliceVar(&f.notifyURLs, "notify", nil, "Shoutrrr URL to send the run summary to")
	fl.BoolVar(&f.onlyOnFailure, "notify-on-failure", false, "notify only when a case failed")
	fl.IntVarP(&f.parallel, "parallel", "p", 1, "number of cases run concurrently")
	fl.StringVar(&f.envFile, "env", "", ".env file with test data variables")
	fl.StringVar(&f.logsDir, "logs-dir", "", "directory for run.log and steps.log")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log debug messages")
	fl.DurationVar(&f.caseTimeout, "timeout", 0, "maximum duration of one case")
	fl.DurationVar(&f.staleThreshold, "stale-threshold", 0, "cancel a case after this long without step progress")
	fl.StringVar(&f.history, "history", "", "append one line per case to this JSON-lines file")
	fl.BoolVar(&f.noExpand, "no-expand", false, "do not expand ${VAR} in table cells")
	return cmd
}

// loadRunConfig reads the configuration file, if any, and
// applies the flags that were set explicitly.
func loadRunConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("remote-url") {
		cfg.Browser.RemoteURL = f.remoteURL
	}
	if changed("reports-dir") {
		cfg.Reports.Dir = f.reportsDir
		cfg.Reports.ScreenshotsDir = ""
	}
	if changed("json") {
		cfg.Reports.JSON = f.jsonReports
	}
	if changed("history") {
		cfg.Reports.History = f.history
	}
	if changed("monitor-addr") {
		cfg.Monitor.Addr = f.monitorAddr
	}
	if changed("notify") {
		cfg.Notify.URLs = f.notifyURLs
	}
	if changed("notify-on-failure") {
		cfg.Notify.OnlyOnFailure = f.onlyOnFailure
	}
	if changed("parallel") {
		cfg.Run.Parallel = f.parallel
	}
	if changed("env") {
		cfg.Run.EnvFile = f.envFile
	}
	if changed("logs-dir") {
		cfg.Logging.Dir = f.logsDir
	}
	if changed("verbose") {
		cfg.Logging.Verbose = f.verbose
		if f.verbose {
			cfg.Logging.Level = "debug"
		}
	}
	if changed("timeout") {
		cfg.Run.CaseTimeout = f.caseTimeout
	}
	if changed("stale-threshold") {
		cfg.Run.StaleThreshold = f.staleThreshold
	}
	if changed("no-expand") {
		cfg.Engine.ExpandVariables = !f.noExpand
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collectCases turns file arguments into cases, falling back
// to the configured ones.
func collectCases(cfg *config.Config, sheetName string, args []string) ([]runner.Case, error) {
	if len(args) == 0 {
		if len(cfg.Run.Cases) == 0 {
			return nil, errors.New("no test files given and none configured")
		}
		return cfg.Run.Cases, nil
	}
	cases := make([]runner.Case, 0, len(args))
	for _, path := range args {
		if _, err := sheet.Open(path); err != nil {
			return nil, err
		}
		cases = append(cases, runner.CaseFromPath(path, sheetName))
	}
	return cases, nil
}

// setupLogger builds the console and JSON loggers, masking the
// secrets loaded from the env file.
func setupLogger(
	out io.Writer, cfg *config.Config, secrets []string,
) (logging.Logger, error) {
	console := consoleLogger(out, cfg.Logging.Verbose)
	loggers := []logging.Logger{}
	if cfg.Logging.Console {
		loggers = append(loggers, console)
	}
	if cfg.Logging.Dir != "" {
		jl, err := logging.SetupLogging(
			cfg.Logging.Dir, cfg.LogLevel(), cfg.Logging.Verbose,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		loggers = append(loggers, jl)
	}

	var logger logging.Logger = logging.NewMultiLogger(loggers...)
	secrets = append(secrets, cfg.Logging.Redact...)
	if len(secrets) > 0 {
		logger = logging.NewRedactingLogger(logger, secrets...)
	}
	return logger, nil
}

func runCases(
	cmd *cobra.Command,
	cfg *config.Config,
	f *runFlags,
	args []string,
	launch launcher,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	var secrets []string
	if cfg.Run.EnvFile != "" {
		loader := env.NewLoader()
		if err := loader.Load(cfg.Run.EnvFile); err != nil {
			return err
		}
		if err := loader.Apply(); err != nil {
			return err
		}
		secrets = loader.Secrets()
	}

	cases, err := collectCases(cfg, f.sheet, args)
	if err != nil {
		return err
	}

	logger, err := setupLogger(out, cfg, secrets)
	if err != nil {
		return err
	}
	defer logger.Close()

	runID := uuid.NewString()
	events := monitor.NewEventCollector()
	collector := metrics.NewCollector("kwrun")

	var srv *monitor.Server
	if cfg.Monitor.Addr != "" {
		srv = monitor.NewServer(
			cfg.Monitor.Addr, events, runID,
		).WithMetrics(collector)
		if err := srv.Listen(); err != nil {
			return err
		}
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Start(srvCtx); err != nil {
				logger.Error("monitor server stopped", logging.ErrorField(err))
			}
		}()
		logger.Info(
			"monitor listening",
			logging.StringField("url", "http://"+srv.Addr()+"/dashboard"),
		)
	}

	browserOpts := cfg.Browser
	browserOpts.Logger = logger
	factory := func(ctx context.Context) (browser.Session, func(), error) {
		return launch(ctx, browserOpts)
	}

	r := runner.NewRunner(
		factory,
		runner.WithLogger(logger),
		runner.WithConfig(cfg.TestcaseConfig()),
		runner.WithSource(sheet.Files{Expand: cfg.Engine.ExpandVariables}),
		runner.WithEvents(events),
		runner.WithMetrics(collector),
		runner.WithTimeout(cfg.Run.CaseTimeout),
		runner.WithStaleThreshold(cfg.Run.StaleThreshold),
		runner.WithParallel(cfg.Run.Parallel),
		runner.WithJSONReports(cfg.Reports.JSON),
		runner.WithHistory(cfg.Reports.History),
		runner.WithRunID(runID),
	)

	results, runErr := r.Run(ctx, cases)
	if srv != nil {
		srv.Finish(runStatus(results, runErr))
	}
	printResults(out, results)

	summary := runner.Summarize(runID, results)
	if cfg.Reports.SuiteSummary || len(cases) > 1 {
		path, err := report.SaveSuiteSummary(summary, cfg.Reports.Dir)
		if err != nil {
			logger.Warn("failed to write suite summary", logging.ErrorField(err))
		} else {
			fmt.Fprintf(out, "Suite summary: %s\n", path)
		}
	}

	n := notify.New(
		cfg.Notify.URLs,
		notify.WithTemplate(cfg.Notify.Template),
		notify.OnlyOnFailure(cfg.Notify.OnlyOnFailure),
		notify.WithLogger(logger),
	)
	if _, err := n.Notify(ctx, summary); err != nil {
		logger.Warn("some notifications failed", logging.ErrorField(err))
	}

	if runErr != nil {
		return runErr
	}
	if !runner.AllPassed(results) {
		return errStepsFailed
	}
	return nil
}

// runStatus is the overall dashboard status of a finished run.
func runStatus(results []*runner.CaseResult, runErr error) string {
	if runErr != nil || !runner.AllPassed(results) {
		return monitor.StatusFailed
	}
	return monitor.StatusPassed
}

func printResults(w io.Writer, results []*runner.CaseResult) {
	for _, res := range results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(
			w, "%s %s %d/%d steps",
			status, res.Case.Name, res.Summary.Passed, res.Summary.Total,
		)
		if res.ReportPath != "" {
			fmt.Fprintf(w, " report=%s", res.ReportPath)
		}
		if res.Err != nil {
			fmt.Fprintf(w, " error=%q", res.Err.Error())
		}
		fmt.Fprintln(w)
	}
}
