package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"digital.vasic.keywords/pkg/testcase"
)

// BuildSummary computes the statistics shown in a report.
// Identical inputs always give identical statistics.
func BuildSummary(
	results []testcase.StepResult,
) testcase.Summary {
	return testcase.Summarize(results)
}

// SuiteSummary aggregates the outcome of several test cases
// executed in one run.
type SuiteSummary struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Cases       []CaseSummary `json:"cases"`
	TotalCases  int           `json:"total_cases"`
	PassedCases int           `json:"passed_cases"`
	FailedCases int           `json:"failed_cases"`
	TotalSteps  int           `json:"total_steps"`
	PassedSteps int           `json:"passed_steps"`
	Duration    time.Duration `json:"duration"`
}

// CaseSummary represents a summary of a single test case.
type CaseSummary struct {
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	Summary    testcase.Summary `json:"summary"`
	Duration   time.Duration    `json:"duration"`
	ReportPath string           `json:"report_path,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Add records one case in the suite summary. A case passes only
// when it ran without error and every step passed.
func (s *SuiteSummary) Add(c CaseSummary) {
	if c.Status == "" {
		c.Status = testcase.StatusPassed
		if c.Error != "" || c.Summary.Failed > 0 {
			c.Status = testcase.StatusFailed
		}
	}
	s.Cases = append(s.Cases, c)
	s.TotalCases++
	s.TotalSteps += c.Summary.Total
	s.PassedSteps += c.Summary.Passed
	s.Duration += c.Duration
	if c.Status == testcase.StatusPassed {
		s.PassedCases++
	} else {
		s.FailedCases++
	}
}

// Passed reports whether every case passed.
func (s *SuiteSummary) Passed() bool {
	return s.FailedCases == 0
}

// SaveSuiteSummary writes the suite summary as JSON and Markdown
// into outputDir and returns the JSON path.
func SaveSuiteSummary(
	summary *SuiteSummary,
	outputDir string,
) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	ts := summary.GeneratedAt.Format(timestampLayout)

	jsonPath := filepath.Join(
		outputDir, fmt.Sprintf("suite_summary_%s.json", ts),
	)
	jsonData, err := jsonMarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(
		outputDir, fmt.Sprintf("suite_summary_%s.md", ts),
	)
	if err := os.WriteFile(
		mdPath, []byte(suiteMarkdown(summary)), 0644,
	); err != nil {
		return "", fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	return jsonPath, nil
}

func suiteMarkdown(summary *SuiteSummary) string {
	var sb strings.Builder

	sb.WriteString("# Keyword Test Suite Summary\n\n")
	fmt.Fprintf(&sb, "**Run ID:** %s\n\n", summary.RunID)
	fmt.Fprintf(
		&sb, "**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339),
	)

	sb.WriteString("## Cases\n\n")
	sb.WriteString("| Case | Status | Steps | Pass Rate | Report |\n")
	sb.WriteString("|------|--------|-------|-----------|--------|\n")
	for _, c := range summary.Cases {
		fmt.Fprintf(
			&sb, "| %s | %s | %d/%d | %.1f%% | %s |\n",
			c.Name, strings.ToUpper(c.Status),
			c.Summary.Passed, c.Summary.Total,
			c.Summary.PassRate, c.ReportPath,
		)
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Total Cases | %d |\n", summary.TotalCases)
	fmt.Fprintf(&sb, "| Passed | %d |\n", summary.PassedCases)
	fmt.Fprintf(&sb, "| Failed | %d |\n", summary.FailedCases)
	fmt.Fprintf(
		&sb, "| Steps Passed | %d/%d |\n",
		summary.PassedSteps, summary.TotalSteps,
	)
	fmt.Fprintf(&sb, "| Duration | %v |\n", summary.Duration)

	return sb.String()
}
