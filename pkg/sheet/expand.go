package sheet

import (
	"fmt"
	"strings"

	"github.com/a8m/envsubst"

	"digital.vasic.keywords/pkg/testcase"
)

// Expand replaces ${VAR} references in s with environment
// values. Strings without "${" are returned unchanged so that
// literal dollar amounts survive.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	return envsubst.String(s)
}

// ExpandSteps expands the locator, data and expected cells of
// every step.
func ExpandSteps(steps []testcase.Step) ([]testcase.Step, error) {
	out := make([]testcase.Step, len(steps))
	for i, s := range steps {
		var err error
		for _, cell := range []*string{
			&s.Locator, &s.Data, &s.Expected,
		} {
			if *cell, err = Expand(*cell); err != nil {
				return nil, fmt.Errorf(
					"expand step %s: %w", s.Number, err,
				)
			}
		}
		out[i] = s
	}
	return out, nil
}
