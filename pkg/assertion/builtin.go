package assertion

import (
	"fmt"
	"regexp"
	"strings"
)

// evaluateContains checks that the text contains the expected
// substring (case-insensitive).
func evaluateContains(
	def Definition,
	actual string,
) (bool, string) {
	if strings.Contains(
		strings.ToLower(actual),
		strings.ToLower(def.Value),
	) {
		return true, fmt.Sprintf("contains '%s'", def.Value)
	}

	return false, fmt.Sprintf(
		"expected '%s' in '%s'", def.Value, actual,
	)
}

// evaluateContainsExact is the case-sensitive variant used for
// dialog texts.
func evaluateContainsExact(
	def Definition,
	actual string,
) (bool, string) {
	if strings.Contains(actual, def.Value) {
		return true, fmt.Sprintf("contains '%s'", def.Value)
	}

	return false, fmt.Sprintf(
		"expected '%s' in '%s'", def.Value, actual,
	)
}

// evaluateEquals compares the trimmed text for equality.
func evaluateEquals(
	def Definition,
	actual string,
) (bool, string) {
	if strings.TrimSpace(actual) == strings.TrimSpace(def.Value) {
		return true, fmt.Sprintf("equals '%s'", def.Value)
	}

	return false, fmt.Sprintf(
		"expected '%s', got '%s'", def.Value, actual,
	)
}

// evaluateNotEmpty checks that the text is not blank.
func evaluateNotEmpty(
	_ Definition,
	actual string,
) (bool, string) {
	if strings.TrimSpace(actual) == "" {
		return false, "text is empty"
	}
	return true, "text is not empty"
}

// evaluateRegex checks that the text matches the expected
// regular expression.
func evaluateRegex(
	def Definition,
	actual string,
) (bool, string) {
	re, err := regexp.Compile(def.Value)
	if err != nil {
		return false, fmt.Sprintf(
			"invalid regex pattern '%s': %v",
			def.Value, err,
		)
	}

	if re.MatchString(actual) {
		return true, fmt.Sprintf(
			"matches pattern '%s'", def.Value,
		)
	}

	return false, fmt.Sprintf(
		"'%s' does not match pattern '%s'",
		actual, def.Value,
	)
}
