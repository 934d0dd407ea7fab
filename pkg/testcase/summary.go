package testcase

import "time"

// Summary holds the aggregate statistics of a run.
type Summary struct {
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	PassRate    float64   `json:"pass_rate"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summarize computes statistics for the given results. The pass
// rate is a percentage and is zero when there are no results.
func Summarize(results []StepResult) Summary {
	s := Summary{
		Total:       len(results),
		GeneratedAt: time.Now(),
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) /
			float64(s.Total) * 100
	}
	return s
}

// SameStats reports whether two summaries carry identical
// statistics, ignoring the generation time.
func (s Summary) SameStats(other Summary) bool {
	return s.Total == other.Total &&
		s.Passed == other.Passed &&
		s.Failed == other.Failed &&
		s.PassRate == other.PassRate
}
