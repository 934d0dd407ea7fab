// Package report renders keyword test results as HTML and JSON
// documents and keeps an append-only run history.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"digital.vasic.keywords/pkg/testcase"
)

// FilePrefix is the base name of every generated report file.
const FilePrefix = "keyword_test_report"

// timestampLayout formats report file name timestamps.
const timestampLayout = "20060102_150405"

// Marshal functions are variables so tests can inject failures.
var (
	jsonMarshal       = json.Marshal
	jsonMarshalIndent = json.MarshalIndent
)

// Reporter renders a result set into a document.
type Reporter interface {
	// Render writes the document for results to w.
	Render(
		w io.Writer,
		results []testcase.StepResult,
		summary testcase.Summary,
	) error

	// WriteFile renders results into a new timestamped file
	// and returns its path.
	WriteFile(results []testcase.StepResult) (string, error)
}

// writeTimestamped creates dir when missing and renders into a
// new file named <FilePrefix>_<timestamp><ext>. A numeric suffix
// is added when the name is already taken so that reports
// generated within the same second never overwrite each other.
func writeTimestamped(
	dir, ext string,
	now time.Time,
	render func(w io.Writer) error,
) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf(
			"failed to create report directory: %w", err,
		)
	}

	base := fmt.Sprintf(
		"%s_%s", FilePrefix, now.Format(timestampLayout),
	)

	var (
		path string
		file *os.File
		err  error
	)
	for i := 0; ; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path = filepath.Join(dir, name)
		file, err = os.OpenFile(
			path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644,
		)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf(
				"failed to create report file: %w", err,
			)
		}
	}

	if err := render(file); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf(
			"failed to close report file: %w", err,
		)
	}
	return path, nil
}
