// Package assertion provides the text assertion evaluators used
// by the verify keywords. Evaluators are registered by name and
// custom ones can be added at runtime.
package assertion

// Definition describes a single assertion to evaluate against
// text read from the browser.
type Definition struct {
	// Type is the evaluator type (e.g., "contains",
	// "equals", "regex").
	Type string `json:"type"`

	// Target names what was read, such as a locator or
	// "dialog". It is only used in messages.
	Target string `json:"target,omitempty"`

	// Value is the expected value.
	Value string `json:"value,omitempty"`
}

// Result captures the outcome of evaluating a single assertion.
type Result struct {
	Type     string `json:"type"`
	Target   string `json:"target,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`

	// Message is a human-readable description of the outcome.
	Message string `json:"message"`
}
