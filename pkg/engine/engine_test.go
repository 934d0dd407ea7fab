package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.keywords/pkg/browser/browsertest"
	"digital.vasic.keywords/pkg/keyword"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/metrics"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

func testConfig(t *testing.T) *testcase.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testcase.NewConfig()
	cfg.ReportsDir = dir
	cfg.ScreenshotsDir = filepath.Join(dir, "screenshots")
	return cfg
}

func newTestEngine(
	t *testing.T,
	fake *browsertest.Fake,
	opts ...Option,
) (*Engine, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	base := []Option{
		WithConfig(testConfig(t)),
		WithSleep(rec.sleep),
	}
	return New(fake, append(base, opts...)...), rec
}

func loginPage() *browsertest.Fake {
	fake := browsertest.New()
	fake.Add("id=username", &browsertest.Element{})
	fake.Add("id=login", &browsertest.Element{})
	fake.Add("id=welcome", &browsertest.Element{
		TextFunc: func(f *browsertest.Fake) string {
			return "Welcome " + f.Element("id=username").Value
		},
	})
	return fake
}

func loginSteps(user, expect string) []testcase.Step {
	return []testcase.Step{
		{Number: "1", Keyword: "navigate", Data: "http://fixture/login"},
		{Number: "2", Keyword: "input_text", Locator: "id=username", Data: user},
		{Number: "3", Keyword: "verify_text", Locator: "id=welcome", Data: expect},
	}
}

func TestExecuteSteps_LoginScenarioPasses(t *testing.T) {
	fake := loginPage()
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(
		context.Background(), loginSteps("alice", "alice"),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Passed, r.Message)
		assert.Equal(t, testcase.MessageSuccess, r.Message)
	}
	assert.Equal(t, []string{"http://fixture/login"}, fake.Navigated())
}

func TestExecuteSteps_ChangedDataFailsOnlyVerification(t *testing.T) {
	fake := loginPage()
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(
		context.Background(), loginSteps("bob", "alice"),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Passed)
	assert.True(t, results[1].Passed)
	assert.False(t, results[2].Passed)
	assert.Equal(
		t,
		"text mismatch: expected 'alice' in 'Welcome bob'",
		results[2].Message,
	)
	require.NotEmpty(t, results[2].Screenshot)
	assert.FileExists(t, results[2].Screenshot)
	assert.True(t, strings.HasPrefix(
		filepath.Base(results[2].Screenshot), "verify_text_failure_",
	))
}

func TestExecuteSteps_CountMatchesNonBlankRows(t *testing.T) {
	steps := []testcase.Step{
		{Number: "1", Keyword: "open_browser"},
		{Number: "2", Keyword: "   "},
		{Number: "3", Keyword: "wait", Data: "0"},
		{Number: "4"},
		{Number: "5", Keyword: "close_browser"},
	}
	events := monitor.NewEventCollector()
	e, _ := newTestEngine(t, browsertest.New(), WithEvents(events))

	results, err := e.ExecuteSteps(context.Background(), steps)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].Step)
	assert.Equal(t, "3", results[1].Step)
	assert.Equal(t, "5", results[2].Step)
	assert.Equal(t, 2, events.Stats().Skipped)
}

func TestExecuteSteps_FailureDoesNotStopLaterSteps(t *testing.T) {
	fake := loginPage()
	e, _ := newTestEngine(t, fake)

	steps := []testcase.Step{
		{Number: "1", Keyword: "navigate", Data: "http://fixture/login"},
		{Number: "2", Keyword: "fly_to_moon"},
		{Number: "3", Keyword: "click", Locator: "bogus=x"},
		{Number: "4", Keyword: "click"},
		{Number: "5", Keyword: "input_text", Locator: "id=username", Data: "alice"},
		{Number: "6", Keyword: "verify_text", Locator: "id=welcome", Data: "alice"},
	}
	results, err := e.ExecuteSteps(context.Background(), steps)
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "unknown keyword: fly_to_moon", results[1].Message)
	assert.False(t, results[2].Passed)
	assert.Contains(t, results[2].Message, "unknown locator strategy")
	assert.False(t, results[3].Passed)
	assert.Equal(t, "locator is required for click", results[3].Message)
	assert.True(t, results[4].Passed)
	assert.True(t, results[5].Passed)
}

func TestExecuteSteps_DialogAfterClickIsCleared(t *testing.T) {
	fake := browsertest.New()
	fake.Add("id=signup", &browsertest.Element{
		OnClick: func(f *browsertest.Fake) {
			f.OpenDialog("Sign up successful.")
		},
	})
	fake.Add("id=username", &browsertest.Element{})
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(context.Background(), []testcase.Step{
		{Number: "1", Keyword: "click", Locator: "id=signup"},
		{Number: "2", Keyword: "input_text", Locator: "id=username", Data: "x"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed, results[0].Message)
	assert.True(t, results[1].Passed, results[1].Message)
	assert.Nil(t, fake.Pending())
	assert.Equal(t, []browsertest.HandledDialog{
		{Message: "Sign up successful.", Accept: true},
	}, fake.Handled())
}

func TestExecuteSteps_DialogLeftForHandleAlert(t *testing.T) {
	fake := browsertest.New()
	fake.Add("id=signup", &browsertest.Element{
		OnClick: func(f *browsertest.Fake) {
			f.OpenDialog("Sign up successful.")
		},
	})
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(context.Background(), []testcase.Step{
		{Number: "1", Keyword: "click", Locator: "id=signup"},
		{Number: "2", Keyword: "verify_alert_text", Data: "Sign up successful"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed, results[0].Message)
	assert.True(t, results[1].Passed, results[1].Message)
	assert.Nil(t, fake.Pending())
}

func TestExecuteSteps_PendingDialogClearedBeforeStep(t *testing.T) {
	fake := loginPage()
	fake.ShowDialog("leftover")
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(context.Background(), []testcase.Step{
		{Number: "1", Keyword: "input_text", Locator: "id=username", Data: "a"},
	})
	require.NoError(t, err)
	assert.True(t, results[0].Passed, results[0].Message)
	require.Len(t, fake.Handled(), 1)
	assert.Equal(t, "leftover", fake.Handled()[0].Message)
}

func TestExecuteSteps_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := browsertest.New()
	fake.Add("id=stop", &browsertest.Element{
		OnClick: func(*browsertest.Fake) { cancel() },
	})
	e, _ := newTestEngine(t, fake)

	results, err := e.ExecuteSteps(ctx, []testcase.Step{
		{Number: "1", Keyword: "open_browser"},
		{Number: "2", Keyword: "click", Locator: "id=stop"},
		{Number: "3", Keyword: "open_browser"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 2)
}

func TestExecuteSteps_NoSession(t *testing.T) {
	e := New(nil)
	_, err := e.ExecuteSteps(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestExecuteSteps_RecordsMetricsEventsAndStepLog(t *testing.T) {
	collector := metrics.NewCollector("kw")
	events := monitor.NewEventCollector()
	stepLog := &strings.Builder{}
	logger := logging.NewJSONLoggerTo(
		&strings.Builder{}, stepLog, logging.LevelDebug,
	)
	e, _ := newTestEngine(
		t, loginPage(),
		WithMetrics(collector),
		WithEvents(events),
		WithLogger(logger),
		WithRunID("run-1"),
		WithCaseName("login"),
	)

	_, err := e.ExecuteSteps(
		context.Background(), loginSteps("bob", "alice"),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, collector.RunTotal())
	assert.Equal(t, 1, collector.StepCount("navigate", "passed"))
	assert.Equal(t, 1, collector.StepCount("verify_text", "failed"))
	assert.Equal(t, 1, collector.AssertionCount("contains", "failed"))

	stats := events.Stats()
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	for _, ev := range events.Events() {
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "login", ev.Case)
	}

	lines := strings.Split(strings.TrimSpace(stepLog.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[2], `"passed":false`)
}

func TestExecuteTestCase_LoadsSheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Step,Keyword,Locator,Data\n"+
			"1,navigate,,http://fixture/login\n"+
			"2,input_text,id=username,alice\n"+
			",,,\n"+
			"3,verify_text,id=welcome,alice\n",
	), 0644))

	e, _ := newTestEngine(t, loginPage(), WithSource(sheet.Files{}))
	results, err := e.ExecuteTestCase(context.Background(), path, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, testcase.AllPassed(results))
}

func TestExecuteTestCase_UnreadableSource(t *testing.T) {
	e, _ := newTestEngine(t, browsertest.New())
	results, err := e.ExecuteTestCase(
		context.Background(), "/nonexistent/case.xlsx", "Login",
	)
	require.Error(t, err)
	assert.Empty(t, results)
}

func TestExecuteTestCase_UnsupportedFormat(t *testing.T) {
	e, _ := newTestEngine(t, browsertest.New())
	_, err := e.ExecuteTestCase(context.Background(), "case.txt", "")
	assert.ErrorIs(t, err, sheet.ErrUnsupportedFormat)
}

type panickingSession struct {
	*browsertest.Fake
}

func (panickingSession) Navigate(context.Context, string) error {
	panic("driver crashed")
}

func TestExecuteSteps_PanicFailsOnlyThatStep(t *testing.T) {
	rec := &sleepRecorder{}
	e := New(
		panickingSession{browsertest.New()},
		WithConfig(testConfig(t)),
		WithSleep(rec.sleep),
	)

	results, err := e.ExecuteSteps(context.Background(), []testcase.Step{
		{Number: "1", Keyword: "navigate", Data: "http://x"},
		{Number: "2", Keyword: "wait", Data: "0.25"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "step panicked: driver crashed")
	assert.True(t, results[1].Passed)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, rec.durations())
}

func TestHandlers_CoverEveryKind(t *testing.T) {
	e := New(browsertest.New())
	for _, k := range append(keyword.Kinds(), keyword.Unrecognized) {
		assert.NotNil(t, e.handlers[k], k.String())
	}
}

func TestExecuteSteps_StepTiming(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks int
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	e, _ := newTestEngine(t, browsertest.New(), WithClock(clock))

	results, err := e.ExecuteSteps(context.Background(), []testcase.Step{
		{Number: "1", Keyword: "open_browser"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Duration > 0)
	assert.False(t, results[0].StartTime.IsZero())
}

func TestGenerateTestReport(t *testing.T) {
	e, _ := newTestEngine(t, loginPage())
	results, err := e.ExecuteSteps(
		context.Background(), loginSteps("bob", "alice"),
	)
	require.NoError(t, err)

	path, err := e.GenerateTestReport(results)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, e.Config().ReportsDir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "66.7%")
	assert.Contains(t, string(data), "verify_text")
}

func TestGenerateTestReport_Empty(t *testing.T) {
	e, _ := newTestEngine(t, browsertest.New())
	path, err := e.GenerateTestReport(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0.0%")
}

func TestGenerateTestReport_BadDirectory(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(cfg.ReportsDir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.ReportsDir = filepath.Join(blocker, "reports")

	e := New(browsertest.New(), WithConfig(cfg))
	_, err := e.GenerateTestReport(nil)
	assert.Error(t, err)
}

var errBoom = errors.New("boom")
