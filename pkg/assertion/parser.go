package assertion

import "strings"

// Prefix marks an expectation written as "assert:type:value".
// Text without it is always compared with the fallback type.
const Prefix = "assert:"

// Parse turns an expectation into a Definition. Only text that
// starts with Prefix selects an evaluator; an unregistered type
// after the prefix is kept so that evaluation reports it.
//
// Examples, with fallback "contains":
//
//	"assert:regex:^Welcome" -> {regex ^Welcome}
//	"assert:not_empty"      -> {not_empty ""}
//	"not_empty"             -> {contains "not_empty"}
//	"Price: 10 EUR"         -> {contains "Price: 10 EUR"}
func Parse(s, fallback string) Definition {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return Definition{Type: fallback, Value: s}
	}
	name, value, _ := strings.Cut(rest, ":")
	return Definition{Type: strings.TrimSpace(name), Value: value}
}
