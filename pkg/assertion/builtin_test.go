package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateContains(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		passed   bool
	}{
		{"exact case", "alice", "Welcome, alice", true},
		{"different case", "ALICE", "Welcome, alice", true},
		{"missing", "alice", "Welcome, bob", false},
		{"empty expectation", "", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, msg := evaluateContains(
				Definition{Value: tt.expected}, tt.actual,
			)
			assert.Equal(t, tt.passed, passed)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestEvaluateContains_FailureMessage(t *testing.T) {
	_, msg := evaluateContains(
		Definition{Value: "alice"}, "Welcome, bob",
	)
	assert.Equal(t, "expected 'alice' in 'Welcome, bob'", msg)
}

func TestEvaluateContainsExact(t *testing.T) {
	passed, _ := evaluateContainsExact(
		Definition{Value: "Sign up"}, "Sign up successful.",
	)
	assert.True(t, passed)

	passed, _ = evaluateContainsExact(
		Definition{Value: "sign up"}, "Sign up successful.",
	)
	assert.False(t, passed)
}

func TestEvaluateEquals(t *testing.T) {
	passed, _ := evaluateEquals(
		Definition{Value: "Total: 3"}, "  Total: 3\n",
	)
	assert.True(t, passed)

	passed, msg := evaluateEquals(
		Definition{Value: "Total: 3"}, "Total: 4",
	)
	assert.False(t, passed)
	assert.Contains(t, msg, "got 'Total: 4'")
}

func TestEvaluateNotEmpty(t *testing.T) {
	passed, _ := evaluateNotEmpty(Definition{}, "x")
	assert.True(t, passed)

	passed, msg := evaluateNotEmpty(Definition{}, " \t ")
	assert.False(t, passed)
	assert.Equal(t, "text is empty", msg)
}

func TestEvaluateRegex(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		actual  string
		passed  bool
	}{
		{"match", `^Welcome, \w+$`, "Welcome, alice", true},
		{"no match", `^\d+$`, "abc", false},
		{"invalid", `(`, "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, _ := evaluateRegex(
				Definition{Value: tt.pattern}, tt.actual,
			)
			assert.Equal(t, tt.passed, passed)
		})
	}
}
