package report

import (
	"fmt"
	"html"
	"io"
	"path/filepath"
	"time"

	"digital.vasic.keywords/pkg/testcase"
)

// HTMLReporter generates self-contained HTML reports.
type HTMLReporter struct {
	outputDir string
	title     string
	now       func() time.Time
}

// NewHTMLReporter creates an HTML reporter that writes its files
// to outputDir.
func NewHTMLReporter(outputDir string) *HTMLReporter {
	return &HTMLReporter{
		outputDir: outputDir,
		title:     "Keyword-Driven Test Report",
		now:       time.Now,
	}
}

// WithTitle overrides the document title.
func (r *HTMLReporter) WithTitle(title string) *HTMLReporter {
	r.title = title
	return r
}

// OutputDir returns the directory report files are written to.
func (r *HTMLReporter) OutputDir() string {
	return r.outputDir
}

// WriteFile renders results into
// <outputDir>/keyword_test_report_<YYYYMMDD_HHMMSS>.html and
// returns the path of the new file.
func (r *HTMLReporter) WriteFile(
	results []testcase.StepResult,
) (string, error) {
	summary := BuildSummary(results)
	return writeTimestamped(
		r.outputDir, ".html", r.now(),
		func(w io.Writer) error {
			return r.Render(w, results, summary)
		},
	)
}

// Render writes the HTML document for results to w. Every value
// taken from results is HTML-escaped.
func (r *HTMLReporter) Render(
	w io.Writer,
	results []testcase.StepResult,
	summary testcase.Summary,
) error {
	ew := &errWriter{w: w}

	r.writeHeader(ew)
	fmt.Fprintln(ew, `<div class="container">`)
	fmt.Fprintf(
		ew, "<h1>%s</h1>\n", html.EscapeString(r.title),
	)
	r.writeSummary(ew, summary)
	r.writeSteps(ew, results)
	fmt.Fprintln(ew, "</div>")
	r.writeFooter(ew)

	return ew.err
}

func (r *HTMLReporter) writeSummary(
	w io.Writer,
	summary testcase.Summary,
) {
	generated := summary.GeneratedAt
	if generated.IsZero() {
		generated = r.now()
	}

	fmt.Fprintln(w, `<div class="summary">`)
	fmt.Fprintln(w, "<h2>Test Execution Summary</h2>")
	writeStatBox(w, fmt.Sprint(summary.Total), "Total Steps", "")
	writeStatBox(w, fmt.Sprint(summary.Passed), "Passed", "stat-pass")
	writeStatBox(w, fmt.Sprint(summary.Failed), "Failed", "stat-fail")
	writeStatBox(
		w, fmt.Sprintf("%.1f%%", summary.PassRate),
		"Pass Rate", "",
	)
	writeStatBox(
		w, generated.Format("15:04:05"),
		generated.Format("2006-01-02"), "",
	)
	fmt.Fprintln(w, "</div>")
}

func writeStatBox(w io.Writer, value, label, class string) {
	cls := "stat-value"
	if class != "" {
		cls += " " + class
	}
	fmt.Fprintf(
		w,
		"<div class=\"stat-box\"><div class=\"%s\">%s</div>"+
			"<div class=\"stat-label\">%s</div></div>\n",
		cls,
		html.EscapeString(value),
		html.EscapeString(label),
	)
}

func (r *HTMLReporter) writeSteps(
	w io.Writer,
	results []testcase.StepResult,
) {
	fmt.Fprintln(w, "<h2>Test Step Details</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>Step</th><th>Action/Keyword</th>"+
			"<th>Locator</th><th>Data</th>"+
			"<th>Status</th><th>Message</th></tr>",
	)

	for _, res := range results {
		rowClass, status, statusClass :=
			"pass", "&#10003; PASS", "status-pass"
		if !res.Passed {
			rowClass, status, statusClass =
				"fail", "&#10007; FAIL", "status-fail"
		}

		message := html.EscapeString(res.Message)
		if !res.Passed && res.Screenshot != "" {
			message += fmt.Sprintf(
				" <a href=\"%s\">screenshot</a>",
				html.EscapeString(r.linkTo(res.Screenshot)),
			)
		}

		fmt.Fprintf(
			w,
			"<tr class=\"%s\"><td>%s</td>"+
				"<td><strong>%s</strong></td>"+
				"<td><code>%s</code></td><td>%s</td>"+
				"<td class=\"%s\">%s</td><td>%s</td></tr>\n",
			rowClass,
			html.EscapeString(res.Step),
			html.EscapeString(res.Keyword),
			html.EscapeString(res.Locator),
			html.EscapeString(res.Data),
			statusClass, status,
			message,
		)
	}

	fmt.Fprintln(w, "</table>")
}

// linkTo makes a screenshot path relative to the report
// directory when possible.
func (r *HTMLReporter) linkTo(path string) string {
	if r.outputDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(r.outputDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (r *HTMLReporter) writeHeader(w io.Writer) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background: #f5f5f5; }
.container {
  max-width: 1200px;
  margin: 0 auto;
  background: #fff;
  padding: 20px;
  box-shadow: 0 0 10px rgba(0,0,0,0.1);
}
h1 { color: #333; border-bottom: 3px solid #4caf50; padding-bottom: 10px; }
.summary {
  background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%);
  color: #fff;
  padding: 20px;
  border-radius: 8px;
  margin-bottom: 20px;
}
.summary h2 { margin-top: 0; color: #fff; }
.stat-box { display: inline-block; margin: 10px 20px 10px 0; }
.stat-value { font-size: 24px; font-weight: bold; }
.stat-pass { color: #90ee90; }
.stat-fail { color: #ffb6c1; }
.stat-label { font-size: 14px; opacity: 0.9; }
table {
  border-collapse: collapse;
  width: 100%%;
  margin-top: 20px;
  box-shadow: 0 2px 4px rgba(0,0,0,0.1);
}
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background: #4caf50; color: #fff; }
tr:nth-child(even) { background: #f9f9f9; }
.pass { background: #d4edda !important; color: #155724; }
.fail { background: #f8d7da !important; color: #721c24; }
.status-pass { color: #28a745; font-weight: bold; }
.status-fail { color: #dc3545; font-weight: bold; }
footer {
  margin-top: 40px;
  padding-top: 10px;
  border-top: 1px solid #ddd;
  color: #7f8c8d;
  font-size: 0.9em;
}
</style>
</head>
<body>
`, html.EscapeString(r.title))
}

func (r *HTMLReporter) writeFooter(w io.Writer) {
	fmt.Fprintln(w, "<footer>")
	fmt.Fprintln(w, "<p>Generated by kwrun</p>")
	fmt.Fprintln(w, "</footer>")
	fmt.Fprintln(w, "</body>")
	fmt.Fprintln(w, "</html>")
}

// errWriter remembers the first write error so rendering code
// can use fmt.Fprint freely.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
