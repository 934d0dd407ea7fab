package sheet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"digital.vasic.keywords/pkg/testcase"
)

// YAML reads a document that is either a list of rows or a
// mapping of sheet name to list of rows. Each row maps column
// names to scalar values. An empty sheet name selects the first
// sheet in document order.
type YAML struct{}

// Load reads the named sheet.
func (YAML) Load(path, sheet string) ([]testcase.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		node, err = selectYAMLSheet(node, sheet)
		if err != nil {
			return nil, fmt.Errorf("%w in %s", err, path)
		}
	}

	var rows []map[string]any
	if err := node.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return fromMaps(rows)
}

func selectYAMLSheet(
	m *yaml.Node, sheet string,
) (*yaml.Node, error) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if sheet == "" || m.Content[i].Value == sheet {
			return m.Content[i+1], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
}

// JSON reads the same shapes as YAML. Without a sheet name, a
// mapping must hold exactly one sheet since JSON objects are
// unordered.
type JSON struct{}

// Load reads the named sheet.
func (JSON) Load(path, sheet string) ([]testcase.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err == nil {
		return fromMaps(rows)
	}

	var sheets map[string][]map[string]any
	if err := json.Unmarshal(data, &sheets); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if sheet == "" {
		if len(sheets) != 1 {
			names := make([]string, 0, len(sheets))
			for name := range sheets {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, fmt.Errorf(
				"%w: name one of %v", ErrSheetNotFound, names,
			)
		}
		for _, r := range sheets {
			rows = r
		}
		return fromMaps(rows)
	}

	rows, ok := sheets[sheet]
	if !ok {
		return nil, fmt.Errorf(
			"%w: %q in %s", ErrSheetNotFound, sheet, path,
		)
	}
	return fromMaps(rows)
}

// fromMaps normalizes decoded rows. Numbers and booleans are
// formatted as they would appear in a cell.
func fromMaps(rows []map[string]any) ([]testcase.Step, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]record, 0, len(rows))
	var columns []string
	seen := map[string]bool{}
	for _, row := range rows {
		rec := make(record, len(row))
		for k, v := range row {
			col := NormalizeColumn(k)
			rec[col] = cellString(v)
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
		records = append(records, rec)
	}

	if !hasKeywordColumn(columns) {
		sort.Strings(columns)
		return nil, fmt.Errorf(
			"%w: columns are %v", ErrNoKeywordColumn, columns,
		)
	}
	return toSteps(records), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
