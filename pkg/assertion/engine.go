package assertion

import (
	"fmt"
	"sync"
)

// Built-in evaluator names.
const (
	TypeContains      = "contains"
	TypeContainsExact = "contains_exact"
	TypeEquals        = "equals"
	TypeNotEmpty      = "not_empty"
	TypeRegex         = "regex"
)

// Engine defines the interface for assertion evaluation engines.
type Engine interface {
	// Evaluate checks a single assertion against actual text.
	Evaluate(def Definition, actual string) Result

	// Register adds a custom evaluator for the given assertion
	// type. Returns an error if the type is already registered.
	Register(assertionType string, evaluator Evaluator) error

	// HasEvaluator reports whether the type is registered.
	HasEvaluator(assertionType string) bool
}

// DefaultEngine is the standard Engine implementation. It is
// safe for concurrent use.
type DefaultEngine struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewEngine creates a DefaultEngine with the built-in
// evaluators pre-registered.
func NewEngine() *DefaultEngine {
	e := &DefaultEngine{
		evaluators: map[string]Evaluator{
			TypeContains:      evaluateContains,
			TypeContainsExact: evaluateContainsExact,
			TypeEquals:        evaluateEquals,
			TypeNotEmpty:      evaluateNotEmpty,
			TypeRegex:         evaluateRegex,
		},
	}
	return e
}

// Register adds a custom evaluator for the given assertion type.
func (e *DefaultEngine) Register(
	assertionType string,
	evaluator Evaluator,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.evaluators[assertionType]; exists {
		return fmt.Errorf(
			"assertion type already registered: %s",
			assertionType,
		)
	}

	e.evaluators[assertionType] = evaluator
	return nil
}

// Evaluate runs a single assertion against the actual text.
// Unknown types produce a failed Result.
func (e *DefaultEngine) Evaluate(
	def Definition,
	actual string,
) Result {
	e.mu.RLock()
	evaluator, exists := e.evaluators[def.Type]
	e.mu.RUnlock()

	result := Result{
		Type:     def.Type,
		Target:   def.Target,
		Expected: def.Value,
		Actual:   actual,
	}
	if !exists {
		result.Message = fmt.Sprintf(
			"unknown assertion type: %s", def.Type,
		)
		return result
	}

	result.Passed, result.Message = evaluator(def, actual)
	return result
}

// HasEvaluator returns true if the given assertion type has a
// registered evaluator.
func (e *DefaultEngine) HasEvaluator(
	assertionType string,
) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.evaluators[assertionType]
	return exists
}
