// Package runner executes keyword test cases. Every case gets
// its own browser session, engine and report; cases run in
// sequence or concurrently with a bounded number of sessions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/engine"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

// Case errors.
var (
	ErrStuck       = errors.New("case stuck")
	ErrCaseTimeout = errors.New("case timed out")
)

// Case names one test table to execute.
type Case struct {
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path" yaml:"path" validate:"required"`
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
}

// CaseFromPath builds a case named after the file and sheet.
func CaseFromPath(path, sheetName string) Case {
	name := strings.TrimSuffix(
		filepath.Base(path), filepath.Ext(path),
	)
	if sheetName != "" {
		name += "/" + sheetName
	}
	return Case{Name: name, Path: path, Sheet: sheetName}
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case       Case                  `json:"case"`
	RunID      string                `json:"run_id"`
	Results    []testcase.StepResult `json:"results"`
	Summary    testcase.Summary      `json:"summary"`
	ReportPath string                `json:"report_path,omitempty"`
	JSONPath   string                `json:"json_path,omitempty"`
	StartTime  time.Time             `json:"start_time"`
	Duration   time.Duration         `json:"duration"`
	Stuck      bool                  `json:"stuck,omitempty"`
	Err        error                 `json:"-"`
}

// Passed reports whether the case ran to completion with every
// step passing.
func (r *CaseResult) Passed() bool {
	return r.Err == nil && testcase.AllPassed(r.Results)
}

// SessionFactory opens a browser session for one case. The
// returned release function closes it.
type SessionFactory func(
	ctx context.Context,
) (browser.Session, func(), error)

// Hook is invoked before or after a case.
type Hook func(ctx context.Context, c Case) error

// Runner defines the interface for case execution.
type Runner interface {
	// Run executes cases and returns their results in input
	// order.
	Run(ctx context.Context, cases []Case) ([]*CaseResult, error)

	// RunCase executes a single case.
	RunCase(ctx context.Context, c Case) *CaseResult
}

// DefaultRunner is the standard Runner implementation.
type DefaultRunner struct {
	factory        SessionFactory
	logger         logging.Logger
	cfg            *testcase.Config
	source         sheet.Source
	events         monitor.Sink
	metrics        metrics.StepMetrics
	timeout        time.Duration
	staleThreshold time.Duration
	parallel       int
	jsonReports    bool
	historyPath    string
	preHooks       []Hook
	postHooks      []Hook
	engineOpts     []engine.Option
	newRunID       func() string
	active         atomic.Int64
}

// NewRunner creates a DefaultRunner that opens sessions with
// factory.
func NewRunner(
	factory SessionFactory,
	opts ...RunnerOption,
) *DefaultRunner {
	r := &DefaultRunner{
		factory:  factory,
		logger:   logging.NullLogger{},
		cfg:      testcase.NewConfig(),
		source:   sheet.Files{},
		events:   monitor.NopSink{},
		metrics:  metrics.NoopMetrics{},
		timeout:  30 * time.Minute,
		parallel: 1,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cases under one run ID. Case failures are
// reported in the results; the returned error is only set when
// ctx ends before every case was started.
func (r *DefaultRunner) Run(
	ctx context.Context,
	cases []Case,
) ([]*CaseResult, error) {
	runID := r.newRunID()
	r.logger.Info(
		"run started",
		logging.StringField("run_id", runID),
		logging.IntField("cases", len(cases)),
		logging.IntField("parallel", r.parallel),
	)

	if r.parallel > 1 {
		return runParallel(ctx, r, runID, cases, r.parallel)
	}

	results := make([]*CaseResult, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf(
				"run aborted before case %s: %w", c.Name, err,
			)
		}
		results = append(results, r.runCase(ctx, runID, c))
	}
	return results, nil
}

// RunCase executes a single case under a fresh run ID.
func (r *DefaultRunner) RunCase(
	ctx context.Context,
	c Case,
) *CaseResult {
	return r.runCase(ctx, r.newRunID(), c)
}

// runCase runs one case through its lifecycle: pre-hooks, open
// session, execute with timeout and liveness check, write
// reports, post-hooks, release session.
func (r *DefaultRunner) runCase(
	ctx context.Context,
	runID string,
	c Case,
) *CaseResult {
	if c.Name == "" {
		c.Name = CaseFromPath(c.Path, c.Sheet).Name
	}
	res := &CaseResult{
		Case:      c,
		RunID:     runID,
		StartTime: time.Now(),
	}
	logger := r.logger.WithFields(
		logging.StringField("run_id", runID),
		logging.StringField("case", c.Name),
	)

	r.metrics.SetActiveCases(int(r.active.Add(1)))
	defer func() {
		r.metrics.SetActiveCases(int(r.active.Add(-1)))
	}()

	finish := func() *CaseResult {
		res.Summary = report.BuildSummary(res.Results)
		res.Duration = time.Since(res.StartTime)
		status := testcase.StatusPassed
		if !res.Passed() {
			status = testcase.StatusFailed
		}
		fields := []logging.Field{
			logging.StringField("status", status),
			logging.IntField("passed", res.Summary.Passed),
			logging.IntField("total", res.Summary.Total),
			logging.DurationField("duration_ms", res.Duration),
		}
		if res.Err != nil {
			fields = append(fields, logging.ErrorField(res.Err))
		}
		logger.Info("case completed", fields...)
		return res
	}

	for _, hook := range r.preHooks {
		if err := hook(ctx, c); err != nil {
			res.Err = fmt.Errorf("pre-hook failed: %w", err)
			return finish()
		}
	}

	caseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		caseCtx, cancelTimeout = context.WithTimeout(caseCtx, r.timeout)
		defer cancelTimeout()
	}

	session, release, err := r.factory(caseCtx)
	if err != nil {
		res.Err = fmt.Errorf("failed to open browser session: %w", err)
		return finish()
	}
	defer release()

	progress := newProgressSink(r.events)
	stopLiveness, stuckCh := startLivenessMonitor(
		progress.Channel(), r.staleThreshold, cancel, logger, c.Name,
	)

	opts := []engine.Option{
		engine.WithLogger(r.logger),
		engine.WithConfig(r.cfg),
		engine.WithSource(r.source),
		engine.WithEvents(progress),
		engine.WithMetrics(r.metrics),
		engine.WithRunID(runID),
		engine.WithCaseName(c.Name),
	}
	eng := engine.New(session, append(opts, r.engineOpts...)...)

	res.Results, err = eng.ExecuteTestCase(caseCtx, c.Path, c.Sheet)
	stopLiveness()
	progress.Close()

	wasStuck := false
	if stuckCh != nil {
		select {
		case <-stuckCh:
			wasStuck = true
		default:
		}
	}

	switch {
	case wasStuck:
		res.Stuck = true
		res.Err = fmt.Errorf(
			"%w: no step progress within %v",
			ErrStuck, r.staleThreshold,
		)
	case ctx.Err() == nil &&
		errors.Is(caseCtx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%w after %v", ErrCaseTimeout, r.timeout)
	case err != nil:
		res.Err = err
	}

	r.writeReports(logger, eng, res)

	for _, hook := range r.postHooks {
		if err := hook(ctx, c); err != nil {
			logger.Warn("post-hook failed", logging.ErrorField(err))
		}
	}

	return finish()
}

// writeReports renders the HTML report and, when enabled, the
// JSON report and history line. Failures are logged and do not
// change the case outcome.
func (r *DefaultRunner) writeReports(
	logger logging.Logger,
	eng *engine.Engine,
	res *CaseResult,
) {
	path, err := eng.GenerateTestReport(res.Results)
	if err != nil {
		logger.Error("failed to write HTML report", logging.ErrorField(err))
	}
	res.ReportPath = path

	if r.jsonReports {
		jsonPath, err := report.NewJSONReporter(r.cfg.ReportsDir, true).
			WithCase(res.Case.Name, res.RunID).
			WriteFile(res.Results)
		if err != nil {
			logger.Error(
				"failed to write JSON report", logging.ErrorField(err),
			)
		}
		res.JSONPath = jsonPath
	}

	if r.historyPath != "" {
		err := report.AppendToHistory(
			r.historyPath, report.BuildSummary(res.Results), path,
		)
		if err != nil {
			logger.Warn(
				"failed to append run history", logging.ErrorField(err),
			)
		}
	}
}

// Summarize aggregates case results into a suite summary.
func Summarize(runID string, results []*CaseResult) *report.SuiteSummary {
	s := &report.SuiteSummary{
		RunID:       runID,
		GeneratedAt: time.Now(),
	}
	for _, res := range results {
		cs := report.CaseSummary{
			Name:       res.Case.Name,
			Summary:    res.Summary,
			Duration:   res.Duration,
			ReportPath: res.ReportPath,
			Status:     testcase.StatusPassed,
		}
		if !res.Passed() {
			cs.Status = testcase.StatusFailed
		}
		if res.Err != nil {
			cs.Error = res.Err.Error()
		}
		s.Add(cs)
	}
	return s
}

// AllPassed reports whether every case passed.
func AllPassed(results []*CaseResult) bool {
	for _, res := range results {
		if !res.Passed() {
			return false
		}
	}
	return true
}
