package runner

import (
	"context"
	"sync"
	"time"

	"digital.vasic.keywords/pkg/logging"
)

// livenessMonitor watches a case's step progress and cancels
// its context when no step starts or finishes within the stale
// threshold. Element waits are bounded already, so a silent
// case means the browser itself has hung.
type livenessMonitor struct {
	progress       <-chan time.Time
	staleThreshold time.Duration
	cancel         context.CancelFunc
	logger         logging.Logger
	caseName       string
}

// startLivenessMonitor starts the monitor goroutine. The
// returned stop function must be called when the case finishes.
// When progress is nil or staleThreshold is zero, monitoring is
// disabled and stuck is nil.
func startLivenessMonitor(
	progress <-chan time.Time,
	staleThreshold time.Duration,
	cancel context.CancelFunc,
	logger logging.Logger,
	caseName string,
) (stop func(), stuck <-chan struct{}) {
	if progress == nil || staleThreshold <= 0 {
		return func() {}, nil
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}

	m := &livenessMonitor{
		progress:       progress,
		staleThreshold: staleThreshold,
		cancel:         cancel,
		logger:         logger,
		caseName:       caseName,
	}

	stopCh := make(chan struct{})
	stuckCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		m.run(stopCh, stuckCh)
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
		<-done
	}, stuckCh
}

func (m *livenessMonitor) run(
	stopCh <-chan struct{},
	stuckCh chan<- struct{},
) {
	timer := time.NewTimer(m.staleThreshold)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return

		case _, ok := <-m.progress:
			if !ok {
				return
			}
			timer.Reset(m.staleThreshold)

		case <-timer.C:
			m.logger.Error(
				"case stuck: no step progress",
				logging.StringField("case", m.caseName),
				logging.DurationField(
					"stale_threshold_ms", m.staleThreshold,
				),
			)
			close(stuckCh)
			m.cancel()
			return
		}
	}
}
