package engine

import (
	"context"
	"time"

	"digital.vasic.keywords/pkg/assertion"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig sets the timeouts, directories and dialog patterns.
func WithConfig(cfg *testcase.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithSource sets the reader ExecuteTestCase loads tables with.
func WithSource(src sheet.Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithAssertions sets the assertion engine used by the verify
// keywords.
func WithAssertions(a assertion.Engine) Option {
	return func(e *Engine) {
		e.assertions = a
	}
}

// WithDuplicateDialog sets the predicate that marks a dialog
// text as an "already exists" condition. handle_alert treats
// such dialogs as success. It overrides the patterns from the
// config.
func WithDuplicateDialog(isDuplicate func(text string) bool) Option {
	return func(e *Engine) {
		e.isDuplicate = isDuplicate
	}
}

// WithEvents sets the sink that receives step lifecycle events.
func WithEvents(sink monitor.Sink) Option {
	return func(e *Engine) {
		e.events = sink
	}
}

// WithMetrics sets the step metrics recorder.
func WithMetrics(m metrics.StepMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSleep replaces the context-aware sleep used by the wait
// keyword and the settle pauses. Used by tests.
func WithSleep(
	sleep func(ctx context.Context, d time.Duration) error,
) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithCaseName tags logs and events with the test case name.
func WithCaseName(name string) Option {
	return func(e *Engine) {
		e.caseName = name
	}
}

// WithRunID tags logs and events with a run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}
