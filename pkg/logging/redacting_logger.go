package logging

import (
	"sort"
	"strings"
)

// RedactingLogger masks secrets, such as passwords typed into
// login forms, in messages, string field values and step logs
// before they reach the inner logger.
type RedactingLogger struct {
	inner    Logger
	replacer *strings.Replacer
}

// NewRedactingLogger creates a logger that redacts the given
// secrets. Empty secrets are ignored; when one secret contains
// another, the longer one is masked as a whole.
func NewRedactingLogger(
	inner Logger,
	secrets ...string,
) *RedactingLogger {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return len(kept[i]) > len(kept[j])
	})

	pairs := make([]string, 0, 2*len(kept))
	for _, s := range kept {
		pairs = append(pairs, s, redactValue(s))
	}
	return &RedactingLogger{
		inner:    inner,
		replacer: strings.NewReplacer(pairs...),
	}
}

// redactValue keeps the first 2 characters of long secrets and
// masks the rest. Secrets of 4 characters or fewer are fully
// masked.
func redactValue(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-2)
}

func (r *RedactingLogger) redact(s string) string {
	return r.replacer.Replace(s)
}

func (r *RedactingLogger) redactFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if str, ok := f.Value.(string); ok {
			out[i].Value = r.redact(str)
		}
	}
	return out
}

// Info logs a redacted informational message.
func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.redact(msg), r.redactFields(fields)...)
}

// Warn logs a redacted warning message.
func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.redact(msg), r.redactFields(fields)...)
}

// Error logs a redacted error message.
func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.redact(msg), r.redactFields(fields)...)
}

// Debug logs a redacted debug message.
func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.redact(msg), r.redactFields(fields)...)
}

// WithFields returns a RedactingLogger over a child of the
// inner logger. The child shares the secrets.
func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{
		inner:    r.inner.WithFields(r.redactFields(fields)...),
		replacer: r.replacer,
	}
}

// LogStep logs a step with its data, locator and message
// redacted.
func (r *RedactingLogger) LogStep(step StepLog) {
	step.Data = r.redact(step.Data)
	step.Locator = r.redact(step.Locator)
	step.Message = r.redact(step.Message)
	r.inner.LogStep(step)
}

// Close closes the inner logger.
func (r *RedactingLogger) Close() error {
	return r.inner.Close()
}
