package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"digital.vasic.keywords/pkg/testcase"
)

// Document is the JSON form of a report. It can be read back
// and re-rendered as HTML.
type Document struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Case        string                `json:"case,omitempty"`
	RunID       string                `json:"run_id,omitempty"`
	Summary     testcase.Summary      `json:"summary"`
	Results     []testcase.StepResult `json:"results"`
}

// JSONReporter generates JSON reports.
type JSONReporter struct {
	outputDir string
	pretty    bool
	caseName  string
	runID     string
	now       func() time.Time
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(
	outputDir string,
	pretty bool,
) *JSONReporter {
	return &JSONReporter{
		outputDir: outputDir,
		pretty:    pretty,
		now:       time.Now,
	}
}

// WithCase tags generated documents with a case name and run ID.
func (r *JSONReporter) WithCase(
	name, runID string,
) *JSONReporter {
	r.caseName = name
	r.runID = runID
	return r
}

// Generate returns the encoded document for results.
func (r *JSONReporter) Generate(
	results []testcase.StepResult,
	summary testcase.Summary,
) ([]byte, error) {
	if results == nil {
		results = []testcase.StepResult{}
	}
	doc := Document{
		GeneratedAt: r.now(),
		Case:        r.caseName,
		RunID:       r.runID,
		Summary:     summary,
		Results:     results,
	}
	if r.pretty {
		return jsonMarshalIndent(doc, "", "  ")
	}
	return jsonMarshal(doc)
}

// Render writes the JSON document for results to w.
func (r *JSONReporter) Render(
	w io.Writer,
	results []testcase.StepResult,
	summary testcase.Summary,
) error {
	data, err := r.Generate(results, summary)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteFile renders results into
// <outputDir>/keyword_test_report_<YYYYMMDD_HHMMSS>.json.
func (r *JSONReporter) WriteFile(
	results []testcase.StepResult,
) (string, error) {
	summary := BuildSummary(results)
	return writeTimestamped(
		r.outputDir, ".json", r.now(),
		func(w io.Writer) error {
			return r.Render(w, results, summary)
		},
	)
}

// ReadDocument decodes a JSON report.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf(
			"failed to decode report: %w", err,
		)
	}
	return &doc, nil
}

// LoadDocument reads a JSON report from path.
func LoadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open report: %w", err,
		)
	}
	defer func() { _ = file.Close() }()
	return ReadDocument(file)
}
