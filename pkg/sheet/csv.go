package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"digital.vasic.keywords/pkg/testcase"
)

// CSV reads comma-separated tables. The sheet name is ignored.
type CSV struct{}

// Load reads the file at path.
func (CSV) Load(path, _ string) ([]testcase.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a table from r. The first record is the header.
func ReadCSV(r io.Reader) ([]testcase.Step, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf(
			"%w: table is empty", ErrNoKeywordColumn,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	records, err := fromRows(header, rows)
	if err != nil {
		return nil, err
	}
	return toSteps(records), nil
}
