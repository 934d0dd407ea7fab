// Package locator parses "strategy=value" element descriptors.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy identifies how a browser session resolves a locator.
type Strategy int

// Supported strategies.
const (
	ID Strategy = iota + 1
	Name
	XPath
	CSSSelector
	ClassName
	TagName
	LinkText
	PartialLinkText
)

// Parse errors.
var (
	ErrEmpty           = errors.New("locator is empty")
	ErrInvalidFormat   = errors.New("invalid locator format")
	ErrUnknownStrategy = errors.New("unknown locator strategy")
)

// aliases maps every accepted strategy spelling to its Strategy.
var aliases = map[string]Strategy{
	"id":                ID,
	"name":              Name,
	"xpath":             XPath,
	"css":               CSSSelector,
	"css_selector":      CSSSelector,
	"cssselector":       CSSSelector,
	"css-selector":      CSSSelector,
	"class":             ClassName,
	"classname":         ClassName,
	"class_name":        ClassName,
	"class-name":        ClassName,
	"tag":               TagName,
	"tagname":           TagName,
	"tag_name":          TagName,
	"tag-name":          TagName,
	"link":              LinkText,
	"linktext":          LinkText,
	"link_text":         LinkText,
	"link-text":         LinkText,
	"partial_link":      PartialLinkText,
	"partiallink":       PartialLinkText,
	"partial_link_text": PartialLinkText,
	"partial-link-text": PartialLinkText,
}

// String returns the canonical strategy name.
func (s Strategy) String() string {
	switch s {
	case ID:
		return "id"
	case Name:
		return "name"
	case XPath:
		return "xpath"
	case CSSSelector:
		return "css-selector"
	case ClassName:
		return "class-name"
	case TagName:
		return "tag-name"
	case LinkText:
		return "link-text"
	case PartialLinkText:
		return "partial-link-text"
	default:
		return "unknown"
	}
}

// Locator is a parsed (strategy, value) pair.
type Locator struct {
	Strategy Strategy
	Value    string
}

// String renders the locator back to its canonical
// "strategy=value" form.
func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Value
}

// Parse parses a descriptor of the form "strategy=value". Only
// the first "=" separates the parts, so values such as XPath
// predicates may contain further "=" characters.
//
// Examples:
//
//	"id=login2"                  -> (ID, "login2")
//	"xpath=//a[@id='x']"          -> (XPath, "//a[@id='x']")
//	"id-foo"                      -> ErrInvalidFormat
//	"bogus=foo"                   -> ErrUnknownStrategy
func Parse(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, ErrEmpty
	}

	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return Locator{}, fmt.Errorf(
			"%w: %q, expected 'type=value'",
			ErrInvalidFormat, s,
		)
	}

	name := strings.ToLower(strings.TrimSpace(parts[0]))
	value := strings.TrimSpace(parts[1])

	strategy, ok := aliases[name]
	if !ok {
		return Locator{}, fmt.Errorf(
			"%w: %q", ErrUnknownStrategy, parts[0],
		)
	}
	if value == "" {
		return Locator{}, fmt.Errorf(
			"%w: %q has no value", ErrInvalidFormat, s,
		)
	}

	return Locator{Strategy: strategy, Value: value}, nil
}

// MustParse is like Parse but panics on error. It is intended
// for tests and static tables.
func MustParse(s string) Locator {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}
