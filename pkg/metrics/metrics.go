// Package metrics records per-keyword step counters and
// durations for keyword runs.
package metrics

import "time"

// StepMetrics defines the interface for recording run metrics.
type StepMetrics interface {
	// RecordStep records one executed step.
	RecordStep(keyword string, passed bool, duration time.Duration)
	// RecordAssertion records an assertion evaluation.
	RecordAssertion(evaluator string, passed bool)
	// IncrementRunTotal increments the total run counter.
	IncrementRunTotal()
	// SetActiveCases sets the gauge of test cases running.
	SetActiveCases(count int)
}

// NoopMetrics is a no-op implementation of StepMetrics
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordStep(_ string, _ bool, _ time.Duration) {}
func (NoopMetrics) RecordAssertion(_ string, _ bool)             {}
func (NoopMetrics) IncrementRunTotal()                           {}
func (NoopMetrics) SetActiveCases(_ int)                         {}

func status(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
