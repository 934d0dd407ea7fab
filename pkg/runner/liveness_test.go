package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.keywords/pkg/monitor"
)

func TestLivenessMonitor_Disabled(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, stuck := startLivenessMonitor(nil, time.Second, cancel, nil, "nil-progress")
	stop()
	assert.Nil(t, stuck)

	progress := newProgressSink(nil)
	defer progress.Close()
	stop, stuck = startLivenessMonitor(progress.Channel(), 0, cancel, nil, "zero")
	stop()
	assert.Nil(t, stuck)
}

func TestLivenessMonitor_DetectsStuck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := newProgressSink(nil)
	defer progress.Close()

	stop, stuck := startLivenessMonitor(
		progress.Channel(), 100*time.Millisecond, cancel, nil, "stuck",
	)
	defer stop()
	require.NotNil(t, stuck)

	select {
	case <-stuck:
	case <-time.After(2 * time.Second):
		t.Fatal("expected stuck detection within 2s")
	}
	assert.Error(t, ctx.Err())
}

func TestLivenessMonitor_StepEventsKeepCaseAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := newProgressSink(nil)
	defer progress.Close()

	stop, stuck := startLivenessMonitor(
		progress.Channel(), 200*time.Millisecond, cancel, nil, "alive",
	)
	require.NotNil(t, stuck)

	for i := 0; i < 10; i++ {
		progress.Emit(monitor.StepEvent{Type: monitor.EventStepStarted})
		time.Sleep(50 * time.Millisecond)
	}
	stop()

	select {
	case <-stuck:
		t.Fatal("step events should keep the case alive")
	default:
	}
	assert.NoError(t, ctx.Err())
}

func TestLivenessMonitor_StopIsIdempotent(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := newProgressSink(nil)
	defer progress.Close()

	stop, _ := startLivenessMonitor(
		progress.Channel(), time.Minute, cancel, nil, "stop",
	)
	stop()
	stop()
}

func TestProgressSink_ForwardsAndSignals(t *testing.T) {
	collector := monitor.NewEventCollector()
	progress := newProgressSink(collector)

	progress.Emit(monitor.StepEvent{Type: monitor.EventCaseStarted})
	progress.Emit(monitor.StepEvent{Type: monitor.EventStepPassed})
	progress.Close()
	progress.Close()
	progress.Emit(monitor.StepEvent{Type: monitor.EventStepFailed})

	assert.Len(t, collector.Events(), 3)

	var signals int
	for range progress.Channel() {
		signals++
	}
	assert.Equal(t, 1, signals)
}
