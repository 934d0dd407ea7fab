package monitor

import (
	"sync"
	"time"
)

// Case status values shown on the dashboard.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// DashboardData provides a real-time snapshot of run state.
type DashboardData struct {
	mu        sync.RWMutex
	RunID     string               `json:"run_id"`
	StartTime time.Time            `json:"start_time"`
	Status    string               `json:"status"`
	Cases     map[string]CaseState `json:"cases"`
	Summary   DashboardSummary     `json:"summary"`
}

// CaseState is the dashboard view of one test case.
type CaseState struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Steps       int    `json:"steps"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	CurrentStep string `json:"current_step,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Cases    int     `json:"cases"`
	Running  int     `json:"running"`
	Steps    int     `json:"steps"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	PassRate float64 `json:"pass_rate"`
	Elapsed  string  `json:"elapsed"`
}

// NewDashboardData creates a new dashboard data instance.
func NewDashboardData(runID string) *DashboardData {
	return &DashboardData{
		RunID:     runID,
		StartTime: time.Now(),
		Status:    StatusRunning,
		Cases:     make(map[string]CaseState),
	}
}

// UpdateFromEvent updates dashboard state from a run event.
func (d *DashboardData) UpdateFromEvent(event StepEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, exists := d.Cases[event.Case]
	if !exists {
		state = CaseState{Name: event.Case}
	}

	switch event.Type {
	case EventCaseStarted:
		state.Status = StatusRunning
	case EventStepStarted:
		state.CurrentStep = event.Step
	case EventStepPassed:
		state.Steps++
		state.Passed++
	case EventStepFailed:
		state.Steps++
		state.Failed++
		state.LastError = event.Message
	case EventCaseCompleted:
		state.CurrentStep = ""
		state.Status = StatusPassed
		if state.Failed > 0 || event.Status == StatusFailed {
			state.Status = StatusFailed
		}
	}

	d.Cases[event.Case] = state
	d.recalcSummary()
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{}
	for _, c := range d.Cases {
		s.Cases++
		if c.Status == StatusRunning {
			s.Running++
		}
		s.Steps += c.Steps
		s.Passed += c.Passed
		s.Failed += c.Failed
	}
	if s.Steps > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Steps) * 100
	}
	s.Elapsed = time.Since(d.StartTime).Round(time.Millisecond).String()
	d.Summary = s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() *DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &DashboardData{
		RunID:     d.RunID,
		StartTime: d.StartTime,
		Status:    d.Status,
		Summary:   d.Summary,
		Cases:     make(map[string]CaseState, len(d.Cases)),
	}
	for k, v := range d.Cases {
		snap.Cases[k] = v
	}
	return snap
}

// SetStatus sets the overall run status.
func (d *DashboardData) SetStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Status = status
}

// BuildDashboardData creates a DashboardData snapshot from an
// EventCollector by replaying all collected events.
func BuildDashboardData(
	runID string, collector *EventCollector,
) *DashboardData {
	data := NewDashboardData(runID)
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
