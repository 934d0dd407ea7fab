package testcase

import "time"

// MessageSuccess is recorded on every step that passes.
const MessageSuccess = "Success"

// Status labels used in reports and events.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepResult is the recorded outcome of executing one Step. A
// result is created once, after its step finishes, and is never
// altered by later steps.
type StepResult struct {
	// Step is the sequence identifier of the executed step.
	Step string `json:"step"`

	// Keyword is the keyword as written in the table.
	Keyword string `json:"keyword"`

	// Locator is the raw locator string.
	Locator string `json:"locator"`

	// Data is the input value.
	Data string `json:"data"`

	// Passed is the step outcome.
	Passed bool `json:"result"`

	// Message is MessageSuccess or the failure reason.
	Message string `json:"message"`

	// StartTime is when the step began.
	StartTime time.Time `json:"start_time"`

	// Duration is the wall-clock step time.
	Duration time.Duration `json:"duration"`

	// Screenshot is the path of a diagnostic screenshot taken
	// while executing the step, if any.
	Screenshot string `json:"screenshot,omitempty"`
}

// Status returns StatusPassed or StatusFailed.
func (r StepResult) Status() string {
	if r.Passed {
		return StatusPassed
	}
	return StatusFailed
}

// AllPassed returns true if every result passed. An empty slice
// counts as passed.
func AllPassed(results []StepResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed results in their original order.
func Failed(results []StepResult) []StepResult {
	var failed []StepResult
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
