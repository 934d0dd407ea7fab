package testcase

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds runtime configuration for a keyword engine run.
type Config struct {
	// ReportsDir is where HTML and JSON reports are written.
	ReportsDir string `json:"reports_dir"`

	// ScreenshotsDir is where PNG screenshots are written.
	ScreenshotsDir string `json:"screenshots_dir"`

	// ElementTimeout bounds every wait for an element.
	ElementTimeout time.Duration `json:"element_timeout"`

	// DialogTimeout bounds waits for an expected native dialog.
	DialogTimeout time.Duration `json:"dialog_timeout"`

	// DialogProbe bounds the short check for an unexpected
	// dialog around state-changing actions.
	DialogProbe time.Duration `json:"dialog_probe"`

	// PollInterval is the polling period used by bounded waits.
	PollInterval time.Duration `json:"poll_interval"`

	// AlertAttempts is how many times handle_alert waits for a
	// dialog before treating its absence as success.
	AlertAttempts int `json:"alert_attempts"`

	// SettleDelay is the pause after a dialog is handled and
	// before text verification reads dynamic content.
	SettleDelay time.Duration `json:"settle_delay"`

	// DefaultWait is the wait keyword duration when no data
	// is given.
	DefaultWait time.Duration `json:"default_wait"`

	// DuplicateDialogPatterns are the case-insensitive
	// substrings that mark a dialog as an "already exists"
	// condition.
	DuplicateDialogPatterns []string `json:"duplicate_dialog_patterns"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ReportsDir:     "reports",
		ScreenshotsDir: filepath.Join("reports", "screenshots"),
		ElementTimeout: 15 * time.Second,
		DialogTimeout:  5 * time.Second,
		DialogProbe:    500 * time.Millisecond,
		PollInterval:   500 * time.Millisecond,
		AlertAttempts:  3,
		SettleDelay:    time.Second,
		DefaultWait:    time.Second,
		DuplicateDialogPatterns: []string{
			"already exist",
		},
	}
}

// ContainsAny returns a predicate that reports whether text
// contains any of the patterns, ignoring case.
func ContainsAny(patterns ...string) func(string) bool {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}
	return func(text string) bool {
		t := strings.ToLower(text)
		for _, p := range lowered {
			if strings.Contains(t, p) {
				return true
			}
		}
		return false
	}
}
