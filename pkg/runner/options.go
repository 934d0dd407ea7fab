package runner

import (
	"time"

	"digital.vasic.keywords/pkg/engine"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

// RunnerOption configures a DefaultRunner.
type RunnerOption func(*DefaultRunner)

// WithLogger sets the logger used by the runner and its engines.
func WithLogger(logger logging.Logger) RunnerOption {
	return func(r *DefaultRunner) {
		r.logger = logger
	}
}

// WithConfig sets the engine configuration shared by all cases.
func WithConfig(cfg *testcase.Config) RunnerOption {
	return func(r *DefaultRunner) {
		r.cfg = cfg
	}
}

// WithSource sets the table reader used to load cases.
func WithSource(src sheet.Source) RunnerOption {
	return func(r *DefaultRunner) {
		r.source = src
	}
}

// WithEvents sets the sink that receives engine events.
func WithEvents(sink monitor.Sink) RunnerOption {
	return func(r *DefaultRunner) {
		r.events = sink
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.StepMetrics) RunnerOption {
	return func(r *DefaultRunner) {
		r.metrics = m
	}
}

// WithTimeout bounds the execution time of each case.
func WithTimeout(timeout time.Duration) RunnerOption {
	return func(r *DefaultRunner) {
		r.timeout = timeout
	}
}

// WithStaleThreshold cancels a case when no step starts or
// finishes for d. Zero disables the check.
func WithStaleThreshold(d time.Duration) RunnerOption {
	return func(r *DefaultRunner) {
		r.staleThreshold = d
	}
}

// WithParallel runs at most n cases concurrently.
func WithParallel(n int) RunnerOption {
	return func(r *DefaultRunner) {
		r.parallel = n
	}
}

// WithJSONReports writes a JSON report next to every HTML one.
func WithJSONReports(enabled bool) RunnerOption {
	return func(r *DefaultRunner) {
		r.jsonReports = enabled
	}
}

// WithHistory appends one line per case to the history file at
// path.
func WithHistory(path string) RunnerOption {
	return func(r *DefaultRunner) {
		r.historyPath = path
	}
}

// WithPreHook adds a hook run before each case.
func WithPreHook(h Hook) RunnerOption {
	return func(r *DefaultRunner) {
		r.preHooks = append(r.preHooks, h)
	}
}

// WithPostHook adds a hook run after each case.
func WithPostHook(h Hook) RunnerOption {
	return func(r *DefaultRunner) {
		r.postHooks = append(r.postHooks, h)
	}
}

// WithEngineOptions adds options applied to every engine after
// the runner's own.
func WithEngineOptions(opts ...engine.Option) RunnerOption {
	return func(r *DefaultRunner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *DefaultRunner) {
		r.newRunID = func() string { return id }
	}
}
