package metrics

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Collector implements StepMetrics with in-memory counters and
// exposes them in the Prometheus text format. It is safe for
// concurrent use by parallel test cases.
type Collector struct {
	mu         sync.Mutex
	namespace  string
	steps      map[labelPair]int
	durations  map[string]durationSum
	assertions map[labelPair]int
	runTotal   int
	active     int
}

type labelPair struct {
	name   string
	status string
}

type durationSum struct {
	sum   time.Duration
	count int
}

// NewCollector creates a Collector whose metric names start
// with namespace, for example "kwrun".
func NewCollector(namespace string) *Collector {
	return &Collector{
		namespace:  namespace,
		steps:      make(map[labelPair]int),
		durations:  make(map[string]durationSum),
		assertions: make(map[labelPair]int),
	}
}

func (m *Collector) RecordStep(
	keyword string, passed bool, duration time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[labelPair{keyword, status(passed)}]++
	d := m.durations[keyword]
	d.sum += duration
	d.count++
	m.durations[keyword] = d
}

func (m *Collector) RecordAssertion(evaluator string, passed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertions[labelPair{evaluator, status(passed)}]++
}

func (m *Collector) IncrementRunTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runTotal++
}

func (m *Collector) SetActiveCases(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}

// StepCount returns the count for a keyword and status
// ("passed" or "failed").
func (m *Collector) StepCount(keyword, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[labelPair{keyword, status}]
}

// AssertionCount returns the count for an evaluator and status.
func (m *Collector) AssertionCount(evaluator, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assertions[labelPair{evaluator, status}]
}

// RunTotal returns the total number of runs.
func (m *Collector) RunTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runTotal
}

// ActiveCases returns the current active cases gauge.
func (m *Collector) ActiveCases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func sortedPairs(m map[labelPair]int) []labelPair {
	keys := make([]labelPair, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].status < keys[j].status
	})
	return keys
}

// WriteTo writes all metrics in the Prometheus text exposition
// format with series sorted by label.
func (m *Collector) WriteTo(w io.Writer) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cw := &countingWriter{w: bufio.NewWriter(w)}
	ns := m.namespace

	header := func(name, help, kind string) {
		fmt.Fprintf(cw, "# HELP %s_%s %s\n", ns, name, help)
		fmt.Fprintf(cw, "# TYPE %s_%s %s\n", ns, name, kind)
	}

	header("steps_total", "Executed keyword steps.", "counter")
	for _, k := range sortedPairs(m.steps) {
		fmt.Fprintf(cw, "%s_steps_total{keyword=%q,status=%q} %d\n",
			ns, k.name, k.status, m.steps[k])
	}

	header("step_duration_seconds", "Keyword step duration.", "summary")
	keywords := make([]string, 0, len(m.durations))
	for k := range m.durations {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	for _, k := range keywords {
		d := m.durations[k]
		fmt.Fprintf(cw, "%s_step_duration_seconds_sum{keyword=%q} %g\n",
			ns, k, d.sum.Seconds())
		fmt.Fprintf(cw, "%s_step_duration_seconds_count{keyword=%q} %d\n",
			ns, k, d.count)
	}

	header("assertions_total", "Evaluated text assertions.", "counter")
	for _, k := range sortedPairs(m.assertions) {
		fmt.Fprintf(cw, "%s_assertions_total{evaluator=%q,status=%q} %d\n",
			ns, k.name, k.status, m.assertions[k])
	}

	header("runs_total", "Completed test case runs.", "counter")
	fmt.Fprintf(cw, "%s_runs_total %d\n", ns, m.runTotal)

	header("active_cases", "Test cases currently running.", "gauge")
	fmt.Fprintf(cw, "%s_active_cases %d\n", ns, m.active)

	if err := cw.w.Flush(); err != nil && cw.err == nil {
		cw.err = err
	}
	return cw.n, cw.err
}

// ServeHTTP serves the text exposition on a /metrics route.
func (m *Collector) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = m.WriteTo(w)
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
