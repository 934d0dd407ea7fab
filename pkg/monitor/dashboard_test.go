package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboardData_UpdateFromEvent(t *testing.T) {
	d := NewDashboardData("run-1")

	d.UpdateFromEvent(StepEvent{Type: EventCaseStarted, Case: "login"})
	d.UpdateFromEvent(StepEvent{Type: EventStepStarted, Case: "login", Step: "1"})
	d.UpdateFromEvent(StepEvent{Type: EventStepPassed, Case: "login", Step: "1"})

	snap := d.Snapshot()
	state := snap.Cases["login"]
	assert.Equal(t, StatusRunning, state.Status)
	assert.Equal(t, "1", state.CurrentStep)
	assert.Equal(t, 1, snap.Summary.Running)

	d.UpdateFromEvent(StepEvent{
		Type: EventStepFailed, Case: "login", Step: "2",
		Message: "text mismatch",
	})
	d.UpdateFromEvent(StepEvent{Type: EventCaseCompleted, Case: "login"})

	snap = d.Snapshot()
	state = snap.Cases["login"]
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, "text mismatch", state.LastError)
	assert.Empty(t, state.CurrentStep)
	assert.Equal(t, 2, snap.Summary.Steps)
	assert.InDelta(t, 50.0, snap.Summary.PassRate, 0.001)
	assert.Equal(t, 0, snap.Summary.Running)
}

func TestDashboardData_CaseCompletedPassed(t *testing.T) {
	d := NewDashboardData("run-1")
	d.UpdateFromEvent(StepEvent{Type: EventStepPassed, Case: "a"})
	d.UpdateFromEvent(StepEvent{Type: EventCaseCompleted, Case: "a"})
	assert.Equal(t, StatusPassed, d.Snapshot().Cases["a"].Status)
}

func TestDashboardData_SnapshotIsCopy(t *testing.T) {
	d := NewDashboardData("run-1")
	d.UpdateFromEvent(StepEvent{Type: EventCaseStarted, Case: "a"})

	snap := d.Snapshot()
	snap.Cases["b"] = CaseState{Name: "b"}
	assert.Len(t, d.Snapshot().Cases, 1)
}

func TestBuildDashboardData(t *testing.T) {
	c := NewEventCollector()
	c.Emit(StepEvent{Type: EventCaseStarted, Case: "a"})
	c.Emit(StepEvent{Type: EventStepPassed, Case: "a"})

	d := BuildDashboardData("replay", c)
	d.SetStatus("completed")

	snap := d.Snapshot()
	assert.Equal(t, "replay", snap.RunID)
	assert.Equal(t, "completed", snap.Status)
	assert.Equal(t, 1, snap.Summary.Passed)
}
