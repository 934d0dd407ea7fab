package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	var m StepMetrics = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordStep("click", true, time.Second)
		m.RecordAssertion("contains", false)
		m.IncrementRunTotal()
		m.SetActiveCases(2)
	})
}

func TestCollector_Counts(t *testing.T) {
	m := NewCollector("kwrun")
	var _ StepMetrics = m

	m.RecordStep("click", true, 100*time.Millisecond)
	m.RecordStep("click", true, 200*time.Millisecond)
	m.RecordStep("click", false, time.Second)
	m.RecordAssertion("contains", true)
	m.IncrementRunTotal()
	m.SetActiveCases(3)

	assert.Equal(t, 2, m.StepCount("click", "passed"))
	assert.Equal(t, 1, m.StepCount("click", "failed"))
	assert.Equal(t, 0, m.StepCount("navigate", "passed"))
	assert.Equal(t, 1, m.AssertionCount("contains", "passed"))
	assert.Equal(t, 1, m.RunTotal())
	assert.Equal(t, 3, m.ActiveCases())
}
