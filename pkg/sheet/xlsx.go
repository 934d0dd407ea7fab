package sheet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"digital.vasic.keywords/pkg/testcase"
)

// XLSX reads Excel workbooks. An empty sheet name selects the
// first sheet.
type XLSX struct{}

// Load reads the named sheet.
func (XLSX) Load(path, sheet string) ([]testcase.Step, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf(
			"%w: %q in %s", ErrSheetNotFound, sheet, path,
		)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf(
			"%w: sheet %q is empty", ErrNoKeywordColumn, sheet,
		)
	}

	records, err := fromRows(rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	return toSteps(records), nil
}

// Header is the column layout written by WriteXLSX.
var Header = []string{
	"Step", "Keyword", "Locator", "Data", "Expected_Result",
}

// WriteXLSX writes steps to a new workbook at path with a bold
// header row.
func WriteXLSX(path, sheet string, steps []testcase.Step) error {
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "E", 24); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}

	for i, s := range steps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{s.Number, s.Keyword, s.Locator, s.Data, s.Expected}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
