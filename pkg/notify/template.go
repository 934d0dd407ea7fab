package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"digital.vasic.keywords/pkg/report"
	"digital.vasic.keywords/pkg/testcase"
)

// DefaultTemplate renders a one-line verdict followed by one
// line per failed case.
const DefaultTemplate = `{{ if .Passed }}PASSED{{ else }}FAILED{{ end }} keyword run {{ .RunID | trunc 8 }}: ` +
	`{{ .PassedCases }}/{{ .TotalCases }} cases, {{ .PassedSteps }}/{{ .TotalSteps }} steps ({{ printf "%.1f" .PassRate }}%)
{{- range .Failed }}
- {{ .Name }}: {{ default (printf "%d/%d steps passed" .Summary.Passed .Summary.Total) .Error }}
{{- end }}`

// TemplateData holds all data available to notification
// templates.
type TemplateData struct {
	RunID       string
	Passed      bool
	TotalCases  int
	PassedCases int
	FailedCases int
	TotalSteps  int
	PassedSteps int
	PassRate    float64
	Duration    time.Duration
	Cases       []report.CaseSummary
	Failed      []report.CaseSummary
}

// BuildTemplateData flattens a suite summary for templates.
func BuildTemplateData(s *report.SuiteSummary) TemplateData {
	d := TemplateData{
		RunID:       s.RunID,
		Passed:      s.Passed(),
		TotalCases:  s.TotalCases,
		PassedCases: s.PassedCases,
		FailedCases: s.FailedCases,
		TotalSteps:  s.TotalSteps,
		PassedSteps: s.PassedSteps,
		Duration:    s.Duration,
		Cases:       s.Cases,
	}
	if s.TotalSteps > 0 {
		d.PassRate = float64(s.PassedSteps) / float64(s.TotalSteps) * 100
	}
	for _, c := range s.Cases {
		if c.Status != testcase.StatusPassed {
			d.Failed = append(d.Failed, c)
		}
	}
	return d
}

// Render executes a text/template string with Sprig functions.
func Render(tmplStr string, data TemplateData) (string, error) {
	t, err := template.New("notify").
		Funcs(sprig.TxtFuncMap()).
		Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
