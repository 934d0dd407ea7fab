package monitor

import "time"

// EventType represents the type of run event.
type EventType string

const (
	EventCaseStarted   EventType = "case_started"
	EventCaseCompleted EventType = "case_completed"
	EventStepStarted   EventType = "step_started"
	EventStepPassed    EventType = "step_passed"
	EventStepFailed    EventType = "step_failed"
	EventStepSkipped   EventType = "step_skipped"
	EventDialog        EventType = "dialog"
)

// StepEvent represents a lifecycle event during a keyword run.
type StepEvent struct {
	Type      EventType     `json:"type"`
	RunID     string        `json:"run_id,omitempty"`
	Case      string        `json:"case,omitempty"`
	Step      string        `json:"step,omitempty"`
	Keyword   string        `json:"keyword,omitempty"`
	Locator   string        `json:"locator,omitempty"`
	Status    string        `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Sink receives run events. EventCollector is the standard
// implementation.
type Sink interface {
	Emit(event StepEvent)
}

// NopSink discards events.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(StepEvent) {}
