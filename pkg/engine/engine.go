// Package engine executes keyword-driven test tables against a
// browser session. Each row names a keyword, an optional element
// locator and optional data; the engine runs the rows in order,
// records one result per executed row and keeps going after a
// failed row.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"digital.vasic.keywords/pkg/assertion"
	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/keyword"
	"digital.vasic.keywords/pkg/locator"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

// Engine runs test steps against one borrowed browser session.
// The engine never closes the session. An Engine is not safe for
// concurrent use; run parallel cases with one Engine per
// session.
type Engine struct {
	session     browser.Session
	source      sheet.Source
	logger      logging.Logger
	cfg         *testcase.Config
	assertions  assertion.Engine
	isDuplicate func(string) bool
	events      monitor.Sink
	metrics     metrics.StepMetrics
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	caseName    string
	runID       string
	handlers    map[keyword.Kind]handler
}

// handler executes one kind of step. A nil return marks the
// step as passed.
type handler func(ctx context.Context, run *stepRun) error

// stepRun carries the state of the step being executed.
type stepRun struct {
	step testcase.Step
	kind keyword.Kind
	loc  locator.Locator

	// dialogExpected is set when the next step consumes a
	// native dialog, so a dialog raised by this step is left
	// open for it.
	dialogExpected bool

	screenshot string
}

// New creates an Engine driving session.
func New(session browser.Session, opts ...Option) *Engine {
	e := &Engine{
		session: session,
		source:  sheet.Files{},
		logger:  logging.NullLogger{},
		cfg:     testcase.NewConfig(),
		events:  monitor.NopSink{},
		metrics: metrics.NoopMetrics{},
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.assertions == nil {
		e.assertions = assertion.NewEngine()
	}
	if e.isDuplicate == nil {
		e.isDuplicate = testcase.ContainsAny(
			e.cfg.DuplicateDialogPatterns...,
		)
	}

	var fields []logging.Field
	if e.runID != "" {
		fields = append(fields, logging.StringField("run_id", e.runID))
	}
	if e.caseName != "" {
		fields = append(fields, logging.StringField("case", e.caseName))
	}
	if len(fields) > 0 {
		e.logger = e.logger.WithFields(fields...)
	}

	e.registerHandlers()
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() *testcase.Config {
	return e.cfg
}

// ExecuteTestCase loads the named sheet from path and executes
// its steps. A table that cannot be loaded yields no results
// and an error.
func (e *Engine) ExecuteTestCase(
	ctx context.Context,
	path, sheetName string,
) ([]testcase.StepResult, error) {
	steps, err := e.source.Load(path, sheetName)
	if err != nil {
		e.logger.Error(
			"failed to load test case",
			logging.StringField("path", path),
			logging.StringField("sheet", sheetName),
			logging.ErrorField(err),
		)
		return nil, fmt.Errorf(
			"failed to load test case %s: %w", path, err,
		)
	}

	e.logger.Info(
		"loaded test case",
		logging.StringField("path", path),
		logging.StringField("sheet", sheetName),
		logging.IntField("rows", len(steps)),
	)
	return e.ExecuteSteps(ctx, steps)
}

// ExecuteSteps executes steps in order and returns one result
// per step with a keyword. Rows with a blank keyword are skipped
// and produce no result. A failing step never stops the run;
// only a done context does, in which case the results gathered
// so far are returned with the context error.
func (e *Engine) ExecuteSteps(
	ctx context.Context,
	steps []testcase.Step,
) ([]testcase.StepResult, error) {
	if e.session == nil {
		return nil, ErrSessionRequired
	}

	e.metrics.IncrementRunTotal()
	e.emit(monitor.StepEvent{Type: monitor.EventCaseStarted})

	results := make([]testcase.StepResult, 0, len(steps))
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			e.logger.Error(
				"run aborted",
				logging.IntField("executed", len(results)),
				logging.IntField("remaining", len(steps)-i),
				logging.ErrorField(err),
			)
			e.emitCaseCompleted(results, err)
			return results, fmt.Errorf(
				"run aborted after %d steps: %w",
				len(results), err,
			)
		}

		if st.IsBlank() {
			row := st.Row
			if row == 0 {
				row = i + 1
			}
			e.logger.Warn(
				"skipping row: no keyword found",
				logging.IntField("row", row),
			)
			e.emit(monitor.StepEvent{
				Type:   monitor.EventStepSkipped,
				Step:   st.Number,
				Status: testcase.StatusSkipped,
			})
			continue
		}

		run := &stepRun{
			step:           st,
			kind:           keyword.Lookup(st.Keyword),
			dialogExpected: nextConsumesDialog(steps[i+1:]),
		}
		results = append(results, e.executeStep(ctx, run))
	}

	e.emitCaseCompleted(results, nil)
	return results, nil
}

// nextConsumesDialog reports whether the next step with a
// keyword waits for a native dialog.
func nextConsumesDialog(rest []testcase.Step) bool {
	for _, st := range rest {
		if st.IsBlank() {
			continue
		}
		switch keyword.Lookup(st.Keyword) {
		case keyword.HandleAlert, keyword.VerifyAlertText:
			return true
		}
		return false
	}
	return false
}

func (e *Engine) executeStep(
	ctx context.Context,
	run *stepRun,
) testcase.StepResult {
	st := run.step
	start := e.now()

	e.emit(monitor.StepEvent{
		Type:    monitor.EventStepStarted,
		Step:    st.Number,
		Keyword: st.Keyword,
		Locator: st.Locator,
	})
	e.logger.Info(
		fmt.Sprintf("executing step %s: %s", st.Number, st.Keyword),
		logging.StringField("locator", st.Locator),
		logging.StringField("data", st.Data),
	)

	err := e.dispatch(ctx, run)
	duration := e.now().Sub(start)

	result := testcase.StepResult{
		Step:       st.Number,
		Keyword:    st.Keyword,
		Locator:    st.Locator,
		Data:       st.Data,
		Passed:     err == nil,
		Message:    testcase.MessageSuccess,
		StartTime:  start,
		Duration:   duration,
		Screenshot: run.screenshot,
	}

	event := monitor.StepEvent{
		Type:     monitor.EventStepPassed,
		Step:     st.Number,
		Keyword:  st.Keyword,
		Locator:  st.Locator,
		Status:   testcase.StatusPassed,
		Duration: duration,
	}
	if err != nil {
		result.Message = err.Error()
		event.Type = monitor.EventStepFailed
		event.Status = testcase.StatusFailed
		event.Message = result.Message
		e.logger.Error(
			fmt.Sprintf("step %s failed", st.Number),
			logging.StringField("keyword", st.Keyword),
			logging.ErrorField(err),
		)
	} else {
		e.logger.Info(fmt.Sprintf("step %s passed", st.Number))
	}

	e.metrics.RecordStep(run.kind.String(), result.Passed, duration)
	e.logger.LogStep(logging.StepLog{
		Timestamp:  start.Format(time.RFC3339Nano),
		RunID:      e.runID,
		Step:       result.Step,
		Keyword:    result.Keyword,
		Locator:    result.Locator,
		Data:       result.Data,
		Passed:     result.Passed,
		Message:    result.Message,
		DurationMs: duration.Milliseconds(),
	})
	e.emit(event)

	return result
}

// dispatch resolves the handler, validates the locator and runs
// the step. A panic inside a handler fails only this step.
func (e *Engine) dispatch(
	ctx context.Context,
	run *stepRun,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				"step panicked",
				logging.StringField("step", run.step.Number),
				logging.LogField("panic", r),
				logging.StringField("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()

	switch run.kind {
	case keyword.HandleAlert, keyword.VerifyAlertText:
		// These wait for the dialog themselves.
	default:
		e.clearUnexpectedDialog(ctx)
	}

	raw := strings.TrimSpace(run.step.Locator)
	name := strings.ToLower(strings.TrimSpace(run.step.Keyword))
	switch {
	case run.kind.NeedsLocator():
		if raw == "" {
			return fmt.Errorf("%w for %s", ErrLocatorRequired, name)
		}
		loc, err := locator.Parse(raw)
		if err != nil {
			return err
		}
		run.loc = loc
	case raw != "" && run.kind != keyword.Unrecognized:
		e.logger.Warn(
			fmt.Sprintf("locator ignored for %s", name),
			logging.StringField("locator", raw),
		)
	}

	if err := e.handlers[run.kind](ctx, run); err != nil {
		return err
	}
	if run.kind.ChangesState() && !run.dialogExpected {
		e.clearActionDialog(ctx)
	}
	return nil
}

// GenerateTestReport writes the HTML report for results into
// the configured reports directory and returns its path. It
// succeeds for an empty result set.
func (e *Engine) GenerateTestReport(
	results []testcase.StepResult,
) (string, error) {
	path, err := report.NewHTMLReporter(e.cfg.ReportsDir).
		WriteFile(results)
	if err != nil {
		e.logger.Error(
			"failed to generate report", logging.ErrorField(err),
		)
		return "", err
	}

	summary := report.BuildSummary(results)
	e.logger.Info(
		"report generated",
		logging.StringField("path", path),
		logging.IntField("total", summary.Total),
		logging.IntField("passed", summary.Passed),
		logging.IntField("failed", summary.Failed),
	)
	return path, nil
}

func (e *Engine) emit(ev monitor.StepEvent) {
	ev.RunID = e.runID
	ev.Case = e.caseName
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	e.events.Emit(ev)
}

func (e *Engine) emitCaseCompleted(
	results []testcase.StepResult,
	err error,
) {
	ev := monitor.StepEvent{
		Type:   monitor.EventCaseCompleted,
		Status: testcase.StatusPassed,
	}
	if err != nil || !testcase.AllPassed(results) {
		ev.Status = testcase.StatusFailed
	}
	if err != nil {
		ev.Message = err.Error()
	}
	e.emit(ev)
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
