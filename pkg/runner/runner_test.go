package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/browser/browsertest"
	"digital.vasic.keywords/pkg/engine"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/testcase"
)

const loginTable = `Step,Keyword,Locator,Data
1,navigate,,http://fixture/login
2,input_text,id=username,alice
3,verify_text,id=welcome,alice
`

const failingTable = `Step,Keyword,Locator,Data
1,navigate,,http://fixture/login
2,input_text,id=username,bob
3,verify_text,id=welcome,alice
`

func loginPage() *browsertest.Fake {
	fake := browsertest.New()
	fake.Add("id=username", &browsertest.Element{})
	fake.Add("id=welcome", &browsertest.Element{
		TextFunc: func(f *browsertest.Fake) string {
			return "Welcome " + f.Element("id=username").Value
		},
	})
	return fake
}

func testConfig(t *testing.T) *testcase.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testcase.NewConfig()
	cfg.ReportsDir = dir
	cfg.ScreenshotsDir = filepath.Join(dir, "screenshots")
	cfg.SettleDelay = 0
	cfg.DialogProbe = time.Millisecond
	return cfg
}

func writeTable(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// fakeFactory hands out a fresh login page per session and
// tracks how many sessions are open at once.
type fakeFactory struct {
	mu        sync.Mutex
	opened    int
	released  int
	active    int
	maxActive int
	delay     time.Duration
	err       error
}

func (f *fakeFactory) open(
	_ context.Context,
) (browser.Session, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.mu.Lock()
	f.opened++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	return loginPage(), func() {
		f.mu.Lock()
		f.active--
		f.released++
		f.mu.Unlock()
	}, nil
}

// stalledSession never finishes loading a page.
type stalledSession struct {
	*browsertest.Fake
}

func (s stalledSession) Navigate(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCaseFromPath(t *testing.T) {
	assert.Equal(
		t,
		Case{Name: "login", Path: "cases/login.xlsx"},
		CaseFromPath("cases/login.xlsx", ""),
	)
	assert.Equal(
		t,
		"login/Smoke",
		CaseFromPath("cases/login.xlsx", "Smoke").Name,
	)
}

func TestRun_Sequential(t *testing.T) {
	cfg := testConfig(t)
	factory := &fakeFactory{}
	events := monitor.NewEventCollector()
	m := metrics.NewCollector("kw")

	r := NewRunner(
		factory.open,
		WithConfig(cfg),
		WithEvents(events),
		WithMetrics(m),
		WithRunID("run-1"),
	)

	cases := []Case{
		{Name: "pass", Path: writeTable(t, "pass.csv", loginTable)},
		{Name: "fail", Path: writeTable(t, "fail.csv", failingTable)},
	}
	results, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed())
	assert.Equal(t, 3, results[0].Summary.Passed)
	assert.Equal(t, "run-1", results[0].RunID)
	assert.FileExists(t, results[0].ReportPath)

	assert.False(t, results[1].Passed())
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 2, results[1].Summary.Passed)
	assert.Equal(t, 1, results[1].Summary.Failed)

	assert.False(t, AllPassed(results))
	assert.Equal(t, 2, factory.opened)
	assert.Equal(t, 2, factory.released)
	assert.Equal(t, 2, m.RunTotal())
	assert.Equal(t, 0, m.ActiveCases())
	assert.Equal(t, 5, events.Stats().Passed)
	assert.Equal(t, 1, events.Stats().Failed)
}

func TestRun_ParallelKeepsOrderAndBoundsSessions(t *testing.T) {
	cfg := testConfig(t)
	factory := &fakeFactory{delay: 20 * time.Millisecond}
	path := writeTable(t, "login.csv", loginTable)

	r := NewRunner(factory.open, WithConfig(cfg), WithParallel(2))

	names := []string{"a", "b", "c", "d", "e"}
	cases := make([]Case, len(names))
	for i, n := range names {
		cases[i] = Case{Name: n, Path: path}
	}

	results, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, res := range results {
		assert.Equal(t, names[i], res.Case.Name)
		assert.True(t, res.Passed(), "case %s", res.Case.Name)
	}
	assert.LessOrEqual(t, factory.maxActive, 2)
	assert.Equal(t, len(names), factory.released)
}

func TestRun_CancelledContext(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRunner(factory.open, WithConfig(testConfig(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Run(ctx, []Case{{Name: "x", Path: "x.csv"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, factory.opened)
}

func TestRun_ParallelCancelledContext(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRunner(
		factory.open, WithConfig(testConfig(t)), WithParallel(3),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Run(ctx, []Case{
		{Name: "x", Path: "x.csv"},
		{Name: "y", Path: "y.csv"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestRunCase_FactoryError(t *testing.T) {
	factory := &fakeFactory{err: errors.New("no chrome")}
	r := NewRunner(factory.open, WithConfig(testConfig(t)))

	res := r.RunCase(context.Background(), Case{Path: "login.csv"})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "failed to open browser session")
	assert.Equal(t, "login", res.Case.Name)
	assert.False(t, res.Passed())
	assert.Empty(t, res.ReportPath)
}

func TestRunCase_LoadErrorStillWritesReport(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRunner(factory.open, WithConfig(testConfig(t)))

	res := r.RunCase(
		context.Background(),
		Case{Name: "missing", Path: filepath.Join(t.TempDir(), "no.csv")},
	)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "failed to load test case")
	assert.Empty(t, res.Results)
	assert.FileExists(t, res.ReportPath)
}

func TestRunCase_StuckCaseIsCancelled(t *testing.T) {
	cfg := testConfig(t)
	factory := func(
		_ context.Context,
	) (browser.Session, func(), error) {
		return stalledSession{browsertest.New()}, func() {}, nil
	}

	r := NewRunner(
		factory,
		WithConfig(cfg),
		WithStaleThreshold(50*time.Millisecond),
	)

	path := writeTable(t, "stall.csv", loginTable)
	done := make(chan *CaseResult, 1)
	go func() {
		done <- r.RunCase(context.Background(), Case{Path: path})
	}()

	var res *CaseResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stuck case was not cancelled")
	}

	assert.True(t, res.Stuck)
	assert.ErrorIs(t, res.Err, ErrStuck)
	require.Len(t, res.Results, 1)
	assert.False(t, res.Results[0].Passed)
}

func TestRunCase_Timeout(t *testing.T) {
	factory := func(
		_ context.Context,
	) (browser.Session, func(), error) {
		return stalledSession{browsertest.New()}, func() {}, nil
	}
	r := NewRunner(
		factory,
		WithConfig(testConfig(t)),
		WithTimeout(50*time.Millisecond),
	)

	res := r.RunCase(
		context.Background(),
		Case{Path: writeTable(t, "stall.csv", loginTable)},
	)
	assert.False(t, res.Stuck)
	assert.ErrorIs(t, res.Err, ErrCaseTimeout)
}

func TestRunCase_Hooks(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(name string) Hook {
		return func(_ context.Context, c Case) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name+":"+c.Name)
			return nil
		}
	}

	r := NewRunner(
		(&fakeFactory{}).open,
		WithConfig(testConfig(t)),
		WithPreHook(record("pre")),
		WithPostHook(record("post")),
		WithPostHook(func(context.Context, Case) error {
			return errors.New("cleanup failed")
		}),
	)

	res := r.RunCase(context.Background(), Case{
		Name: "login",
		Path: writeTable(t, "login.csv", loginTable),
	})
	assert.True(t, res.Passed())
	assert.Equal(t, []string{"pre:login", "post:login"}, order)
}

func TestRunCase_PreHookFailureSkipsCase(t *testing.T) {
	factory := &fakeFactory{}
	r := NewRunner(
		factory.open,
		WithConfig(testConfig(t)),
		WithPreHook(func(context.Context, Case) error {
			return errors.New("fixture down")
		}),
	)

	res := r.RunCase(context.Background(), Case{Name: "x"})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "pre-hook failed: fixture down")
	assert.Zero(t, factory.opened)
}

func TestRunCase_JSONReportAndHistory(t *testing.T) {
	cfg := testConfig(t)
	history := filepath.Join(t.TempDir(), "history.jsonl")

	r := NewRunner(
		(&fakeFactory{}).open,
		WithConfig(cfg),
		WithJSONReports(true),
		WithHistory(history),
		WithRunID("run-7"),
	)

	path := writeTable(t, "fail.csv", failingTable)
	res := r.RunCase(context.Background(), Case{Name: "fail", Path: path})
	require.FileExists(t, res.JSONPath)

	doc, err := report.LoadDocument(res.JSONPath)
	require.NoError(t, err)
	assert.Equal(t, "fail", doc.Case)
	assert.Equal(t, "run-7", doc.RunID)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Len(t, doc.Results, 3)

	entries, err := report.ReadHistory(history)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Total)
	assert.Equal(t, res.ReportPath, entries[0].ReportPath)
}

func TestRunCase_EngineOptionsApplied(t *testing.T) {
	cfg := testConfig(t)
	cfg.SettleDelay = time.Second

	var slept atomic.Int64
	r := NewRunner(
		(&fakeFactory{}).open,
		WithConfig(cfg),
		WithEngineOptions(engine.WithSleep(
			func(ctx context.Context, d time.Duration) error {
				slept.Add(int64(d))
				return ctx.Err()
			},
		)),
	)
	res := r.RunCase(context.Background(), Case{
		Path: writeTable(t, "login.csv", loginTable),
	})
	assert.True(t, res.Passed())
	assert.Equal(t, int64(time.Second), slept.Load())
}

func TestSummarize(t *testing.T) {
	results := []*CaseResult{
		{
			Case:    Case{Name: "a"},
			Results: []testcase.StepResult{{Passed: true}},
			Summary: testcase.Summary{Total: 1, Passed: 1},
		},
		{
			Case: Case{Name: "b"},
			Err:  errors.New("boom"),
		},
	}

	s := Summarize("run-1", results)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.TotalCases)
	assert.Equal(t, 1, s.PassedCases)
	assert.Equal(t, 1, s.FailedCases)
	assert.False(t, s.Passed())
	require.Len(t, s.Cases, 2)
	assert.Equal(t, "boom", s.Cases[1].Error)
}
