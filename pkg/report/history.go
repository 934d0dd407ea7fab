package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"digital.vasic.keywords/pkg/testcase"
)

// HistoricalEntry represents a single run in the historical log.
type HistoricalEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	PassRate   float64   `json:"pass_rate"`
	ReportPath string    `json:"report_path"`
}

// AppendToHistory adds an entry to the historical log stored
// at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	summary testcase.Summary,
	reportPath string,
) error {
	entry := HistoricalEntry{
		Timestamp:  summary.GeneratedAt,
		Total:      summary.Total,
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		PassRate:   summary.PassRate,
		ReportPath: reportPath,
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory loads every entry of the historical log. A missing
// file yields no entries.
func ReadHistory(historyPath string) ([]HistoricalEntry, error) {
	file, err := os.Open(historyPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	var entries []HistoricalEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e HistoricalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf(
				"invalid history entry: %w", err,
			)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
