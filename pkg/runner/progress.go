package runner

import (
	"sync"
	"time"

	"digital.vasic.keywords/pkg/monitor"
)

// progressSink forwards engine events to the next sink and
// turns every step event into a progress signal for the
// liveness monitor.
type progressSink struct {
	next   monitor.Sink
	ch     chan time.Time
	mu     sync.Mutex
	closed bool
}

func newProgressSink(next monitor.Sink) *progressSink {
	if next == nil {
		next = monitor.NopSink{}
	}
	return &progressSink{
		next: next,
		ch:   make(chan time.Time, 64),
	}
}

// Emit forwards the event. Progress updates are dropped when
// the buffer is full; the monitor only needs to see one.
func (p *progressSink) Emit(ev monitor.StepEvent) {
	p.next.Emit(ev)

	switch ev.Type {
	case monitor.EventStepStarted, monitor.EventStepPassed,
		monitor.EventStepFailed, monitor.EventStepSkipped:
	default:
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- time.Now():
	default:
	}
}

// Channel returns the progress signal channel.
func (p *progressSink) Channel() <-chan time.Time {
	return p.ch
}

// Close stops progress signalling. Safe to call multiple times.
func (p *progressSink) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}
