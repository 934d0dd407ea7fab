// Package testcase defines the data model shared by the keyword
// engine, the sheet readers and the reporters: test steps, step
// results, run summaries and engine configuration.
package testcase

import "strings"

// Step is one row of a keyword-driven test table. Steps are read
// once at the start of a run and are not modified afterwards.
type Step struct {
	// Number is the sequence identifier taken from the step
	// column, or the 1-based row index when the table has none.
	Number string `json:"step" yaml:"step"`

	// Keyword selects the action. Matching is case-insensitive.
	Keyword string `json:"keyword" yaml:"keyword"`

	// Locator is an optional "strategy=value" element descriptor.
	Locator string `json:"locator,omitempty" yaml:"locator,omitempty"`

	// Data is the optional input value for the action.
	Data string `json:"data,omitempty" yaml:"data,omitempty"`

	// Expected documents the intended outcome. It is never
	// checked by the engine.
	Expected string `json:"expected_result,omitempty" yaml:"expected_result,omitempty"`

	// Row is the 1-based data row the step was read from.
	Row int `json:"row,omitempty" yaml:"-"`
}

// IsBlank reports whether the step carries no keyword and should
// be skipped.
func (s Step) IsBlank() bool {
	return strings.TrimSpace(s.Keyword) == ""
}
