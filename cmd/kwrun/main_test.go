package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/browser/browsertest"
	"digital.vasic.keywords/pkg/fixture"
	"digital.vasic.keywords/pkg/monitor"
	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/runner"
	"digital.vasic.keywords/pkg/sheet"
	"digital.vasic.keywords/pkg/testcase"
)

const loginTable = `Step,Keyword,Locator,Data
1,navigate,,http://fixture/login
2,input_text,id=username,${KW_TEST_USER}
3,verify_text,id=welcome,alice
`

func fakeLaunch(
	_ context.Context, _ browser.Options,
) (browser.Session, func(), error) {
	fake := browsertest.New()
	fake.Add("id=username", &browsertest.Element{})
	fake.Add("id=welcome", &browsertest.Element{
		TextFunc: func(f *browsertest.Fake) string {
			return "Welcome " + f.Element("id=username").Value
		},
	})
	return fake, func() {}, nil
}

func failLaunch(
	context.Context, browser.Options,
) (browser.Session, func(), error) {
	return nil, nil, errors.New("chrome not found")
}

type workspace struct {
	dir     string
	config  string
	reports string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		config:  filepath.Join(dir, "kwrun.yaml"),
		reports: filepath.Join(dir, "reports"),
	}
	cfg := "engine:\n  settle_delay: 0s\n  dialog_probe: 1ms\n" +
		"reports:\n  dir: " + ws.reports + "\n" +
		"logging:\n  dir: " + filepath.Join(dir, "logs") + "\n"
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0o644))
	return ws
}

func (ws workspace) table(t *testing.T, name, user string) string {
	t.Helper()
	path := filepath.Join(ws.dir, name)
	body := strings.ReplaceAll(loginTable, "${KW_TEST_USER}", user)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(
	t *testing.T, cmd *cobra.Command, args ...string,
) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
		assert.NotNil(t, sub.RunE, sub.Name())
	}
	for _, want := range []string{"run", "init", "fixtures", "report", "seed"} {
		assert.True(t, names[want], want)
	}
}

func TestRun_PassingTable(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.table(t, "login.csv", "alice")

	out, err := execute(t, NewRunCmd(fakeLaunch), "--config", ws.config, "--json", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS login 3/3 steps report=")

	htmls, _ := filepath.Glob(filepath.Join(ws.reports, "*.html"))
	assert.Len(t, htmls, 1)
	jsons, _ := filepath.Glob(filepath.Join(ws.reports, "*.json"))
	assert.Len(t, jsons, 1)
	assert.FileExists(t, filepath.Join(ws.dir, "logs", "steps.log"))
}

func TestRun_FailingTableReturnsStepsFailed(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.table(t, "login.csv", "bob")

	out, err := execute(t, NewRunCmd(fakeLaunch), "-c", ws.config, path)
	require.ErrorIs(t, err, errStepsFailed)
	assert.Contains(t, out, "FAIL login 2/3 steps")
}

func TestRun_MultipleFilesWritesSuiteSummary(t *testing.T) {
	ws := newWorkspace(t)
	a := ws.table(t, "a.csv", "alice")
	b := ws.table(t, "b.csv", "alice")

	out, err := execute(
		t, NewRunCmd(fakeLaunch), "-c", ws.config, "--parallel", "2", a, b,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS a 3/3")
	assert.Contains(t, out, "PASS b 3/3")
	assert.Contains(t, out, "Suite summary: ")

	matches, _ := filepath.Glob(filepath.Join(ws.reports, "suite_summary_*.md"))
	assert.Len(t, matches, 1)
}

func TestRun_EnvFileExpandsCells(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.dir, "login.csv")
	require.NoError(t, os.WriteFile(path, []byte(loginTable), 0o644))

	envPath := filepath.Join(ws.dir, ".env")
	require.NoError(t, os.WriteFile(
		envPath, []byte("KW_TEST_USER=alice\nKW_TEST_PASSWORD=hunter22\n"), 0o644,
	))
	t.Cleanup(func() {
		os.Unsetenv("KW_TEST_USER")
		os.Unsetenv("KW_TEST_PASSWORD")
	})

	out, err := execute(
		t, NewRunCmd(fakeLaunch), "-c", ws.config, "--env", envPath, path,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS login 3/3")
}

func TestRun_BrowserLaunchFailure(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.table(t, "login.csv", "alice")

	out, err := execute(t, NewRunCmd(failLaunch), "-c", ws.config, path)
	require.ErrorIs(t, err, errStepsFailed)
	assert.Contains(t, out, "FAIL login 0/0 steps")
	assert.Contains(t, out, "chrome not found")
}

func TestRun_ArgumentErrors(t *testing.T) {
	ws := newWorkspace(t)

	_, err := execute(t, NewRunCmd(fakeLaunch), "-c", ws.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no test files")

	_, err = execute(t, NewRunCmd(fakeLaunch), "-c", ws.config, "cases.txt")
	require.ErrorIs(t, err, sheet.ErrUnsupportedFormat)

	_, err = execute(t, NewRunCmd(fakeLaunch), "-c", filepath.Join(ws.dir, "none.yaml"), "a.csv")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, NewRunCmd(fakeLaunch), "-c", ws.config, "--parallel", "0", "a.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Run.Parallel")
}

func TestInit_WritesLoadableWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "signup.xlsx")

	out, err := execute(t, NewInitCmd(), "--username", "user42", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 16 steps")

	steps, err := sheet.XLSX{}.Load(path, "Sheet1")
	require.NoError(t, err)
	require.Len(t, steps, 16)
	assert.Equal(t, "user42", steps[4].Data)
	assert.Equal(t, "Welcome user42", steps[15].Data)

	_, err = execute(t, NewInitCmd(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, NewInitCmd(), "--force", path)
	require.NoError(t, err)

	_, err = execute(t, NewInitCmd(), filepath.Join(t.TempDir(), "x.csv"))
	require.Error(t, err)
}

func TestReport_RendersHTMLFromJSON(t *testing.T) {
	dir := t.TempDir()
	results := []testcase.StepResult{
		{Step: "1", Keyword: "navigate", Passed: true, Message: "Success"},
		{Step: "2", Keyword: "verify_text", Locator: "id=welcome", Message: "text mismatch"},
	}
	jsonPath, err := report.NewJSONReporter(dir, true).
		WithCase("login", "run-1").
		WriteFile(results)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "html")
	out, err := execute(t, NewReportCmd(), "-o", outDir, jsonPath)
	require.NoError(t, err)

	htmlPath := strings.TrimSpace(out)
	require.FileExists(t, htmlPath)
	body, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Keyword-Driven Test Report: login")
	assert.Contains(t, string(body), "text mismatch")

	_, err = execute(t, NewReportCmd(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestFixtures_StopsWithContext(t *testing.T) {
	cmd := NewFixturesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Serving fixtures at http://127.0.0.1:")
}

func TestSeed_CreatesAndConfirmsAccounts(t *testing.T) {
	store := fixture.NewServer("127.0.0.1:0")
	store.AddUser("alice", fixture.DefaultPassword)
	ts := httptest.NewServer(store.Handler())
	defer ts.Close()

	out, err := execute(t, NewSeedCmd(), "--base-url", ts.URL, "alice", "zoe")
	require.NoError(t, err)
	assert.Contains(t, out, "exists alice")
	assert.Contains(t, out, "created zoe")
	assert.True(t, store.HasUser("zoe"))

	_, err = execute(t, NewSeedCmd(), "--base-url", ts.URL, "--password", "wrong", "alice")
	require.ErrorIs(t, err, fixture.ErrAccount)
}

func TestSeed_UnreachableStore(t *testing.T) {
	_, err := execute(t, NewSeedCmd(), "--base-url", "http://127.0.0.1:1", "--timeout", "1s", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")

	_, err = execute(t, NewSeedCmd())
	require.Error(t, err)
}

func TestRunStatus(t *testing.T) {
	passed := &runner.CaseResult{
		Results: []testcase.StepResult{{Step: "1", Passed: true}},
	}
	failed := &runner.CaseResult{
		Results: []testcase.StepResult{{Step: "1", Passed: false}},
	}

	assert.Equal(t, monitor.StatusPassed, runStatus([]*runner.CaseResult{passed}, nil))
	assert.Equal(t, monitor.StatusFailed, runStatus([]*runner.CaseResult{passed, failed}, nil))
	assert.Equal(t, monitor.StatusFailed, runStatus([]*runner.CaseResult{passed}, context.Canceled))
}
