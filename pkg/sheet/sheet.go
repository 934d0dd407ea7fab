// Package sheet reads keyword test tables from spreadsheets,
// CSV, YAML and JSON files and normalizes their columns into
// test steps.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"digital.vasic.keywords/pkg/testcase"
)

// Load errors.
var (
	ErrNoKeywordColumn   = errors.New("no keyword column")
	ErrUnsupportedFormat = errors.New("unsupported table format")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// Source loads the steps of one named sheet from a file.
type Source interface {
	Load(path, sheet string) ([]testcase.Step, error)
}

// Open returns the Source for path's extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSX{}, nil
	case ".csv":
		return CSV{}, nil
	case ".yaml", ".yml":
		return YAML{}, nil
	case ".json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf(
			"%w: %s", ErrUnsupportedFormat, filepath.Ext(path),
		)
	}
}

// Files is the default Source. It picks the reader by file
// extension and optionally expands ${VAR} references in cells.
type Files struct {
	Expand bool
}

// Load reads sheet from path.
func (f Files) Load(path, sheet string) ([]testcase.Step, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	steps, err := src.Load(path, sheet)
	if err != nil {
		return nil, err
	}
	if f.Expand {
		return ExpandSteps(steps)
	}
	return steps, nil
}

// Column names after normalization.
const (
	colStep         = "step"
	colTestStepID   = "test_step_id"
	colKeyword      = "keyword"
	colAction       = "action"
	colLocator      = "locator"
	colLocatorType  = "locator_type"
	colLocatorValue = "locator_value"
	colData         = "data"
	colValue        = "value"
	colExpected     = "expected_result"
	colExpectedAlt  = "expected"
)

// NormalizeColumn lowercases a header and maps spaces and
// dashes to underscores, so "Test Step ID" and "test_step_id"
// match.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

// record is one table row keyed by normalized column name.
type record map[string]string

func (r record) first(cols ...string) (string, bool) {
	for _, c := range cols {
		if v, ok := r[c]; ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (r record) empty() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// hasKeywordColumn reports whether columns include a keyword
// or action column.
func hasKeywordColumn(columns []string) bool {
	for _, c := range columns {
		if c == colKeyword || c == colAction {
			return true
		}
	}
	return false
}

// fromRows converts a header row plus data rows into records.
// Short rows are padded with empty cells.
func fromRows(header []string, rows [][]string) ([]record, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeColumn(h)
	}
	if !hasKeywordColumn(columns) {
		return nil, fmt.Errorf(
			"%w: columns are %v", ErrNoKeywordColumn, header,
		)
	}

	records := make([]record, 0, len(rows))
	for _, row := range rows {
		rec := make(record, len(columns))
		for i, c := range columns {
			if c == "" {
				continue
			}
			if i < len(row) {
				rec[c] = row[i]
			} else {
				rec[c] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// toSteps maps normalized records to steps. Fully empty rows
// are dropped; rows with only a blank keyword are kept so the
// engine can log and skip them.
func toSteps(records []record) []testcase.Step {
	steps := make([]testcase.Step, 0, len(records))
	for i, rec := range records {
		if rec.empty() {
			continue
		}

		number, _ := rec.first(colStep, colTestStepID)
		if number == "" {
			number = strconv.Itoa(i + 1)
		}
		kw, _ := rec.first(colKeyword, colAction)
		data, _ := rec.first(colData, colValue)
		expected, _ := rec.first(colExpected, colExpectedAlt)

		steps = append(steps, testcase.Step{
			Number:   number,
			Keyword:  kw,
			Locator:  joinLocator(rec),
			Data:     data,
			Expected: expected,
			Row:      i + 1,
		})
	}
	return steps
}

// joinLocator prefers a single Locator cell and otherwise joins
// Locator_Type and Locator_Value when both are set.
func joinLocator(rec record) string {
	if loc, _ := rec.first(colLocator); loc != "" {
		return loc
	}
	typ, _ := rec.first(colLocatorType)
	val, _ := rec.first(colLocatorValue)
	if typ != "" && val != "" {
		return typ + "=" + val
	}
	return ""
}
