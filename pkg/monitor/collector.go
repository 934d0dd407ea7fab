// Package monitor collects keyword run events and streams them
// to live dashboards over WebSocket.
package monitor

import (
	"sync"
	"time"
)

// EventCollector captures run events and timing data.
type EventCollector struct {
	mu       sync.RWMutex
	events   []StepEvent
	handlers []func(StepEvent)
	stats    CollectorStats
}

// CollectorStats holds aggregate step statistics.
type CollectorStats struct {
	Steps     int           `json:"steps"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Cases     int           `json:"cases"`
	Dialogs   int           `json:"dialogs"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]StepEvent, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(StepEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers outside the
// lock.
func (c *EventCollector) Emit(event StepEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventStepPassed:
		c.stats.Steps++
		c.stats.Passed++
	case EventStepFailed:
		c.stats.Steps++
		c.stats.Failed++
	case EventStepSkipped:
		c.stats.Skipped++
	case EventCaseStarted:
		c.stats.Cases++
	case EventDialog:
		c.stats.Dialogs++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(StepEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []StepEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]StepEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
