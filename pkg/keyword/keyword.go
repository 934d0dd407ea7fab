// Package keyword defines the fixed vocabulary of the keyword
// engine as a closed set of step kinds.
package keyword

import "strings"

// Kind is the type of action a test step performs.
type Kind int

// Step kinds. Unrecognized is returned for any keyword outside
// the vocabulary.
const (
	Unrecognized Kind = iota
	OpenBrowser
	Navigate
	Click
	InputText
	VerifyText
	Wait
	WaitForElement
	VerifyElementPresent
	HandleAlert
	VerifyAlertText
	CloseModal
	TakeScreenshot
	CloseBrowser
)

// synonyms maps every normalized spelling to its Kind.
var synonyms = map[string]Kind{
	"open_browser": OpenBrowser,
	"openbrowser":  OpenBrowser,

	"navigate":        Navigate,
	"navigateto":      Navigate,
	"navigate_to":     Navigate,
	"open":            Navigate,
	"openurl":         Navigate,
	"open_url":        Navigate,
	"navigate_to_url": Navigate,

	"click":         Click,
	"clickelement":  Click,
	"click_element": Click,

	"input_text": InputText,
	"inputtext":  InputText,
	"entertext":  InputText,
	"enter_text": InputText,
	"type":       InputText,
	"sendkeys":   InputText,
	"send_keys":  InputText,

	"verify_text": VerifyText,
	"verifytext":  VerifyText,
	"assert_text": VerifyText,

	"wait":  Wait,
	"sleep": Wait,

	"wait_for_element":       WaitForElement,
	"verify_element_present": VerifyElementPresent,
	"handle_alert":           HandleAlert,
	"verify_alert_text":      VerifyAlertText,
	"close_modal":            CloseModal,
	"take_screenshot":        TakeScreenshot,

	"close_browser": CloseBrowser,
	"closebrowser":  CloseBrowser,
	"quit":          CloseBrowser,
}

var names = map[Kind]string{
	Unrecognized:         "unrecognized",
	OpenBrowser:          "open_browser",
	Navigate:             "navigate",
	Click:                "click",
	InputText:            "input_text",
	VerifyText:           "verify_text",
	Wait:                 "wait",
	WaitForElement:       "wait_for_element",
	VerifyElementPresent: "verify_element_present",
	HandleAlert:          "handle_alert",
	VerifyAlertText:      "verify_alert_text",
	CloseModal:           "close_modal",
	TakeScreenshot:       "take_screenshot",
	CloseBrowser:         "close_browser",
}

// Normalize lowercases a keyword, trims it and folds spaces and
// dashes to underscores.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
}

// Lookup resolves a keyword string to its Kind. Unknown strings
// resolve to Unrecognized.
func Lookup(s string) Kind {
	if k, ok := synonyms[Normalize(s)]; ok {
		return k
	}
	return Unrecognized
}

// String returns the canonical keyword for the kind.
func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return names[Unrecognized]
}

// NeedsLocator reports whether steps of this kind must carry a
// locator.
func (k Kind) NeedsLocator() bool {
	switch k {
	case Click, InputText, VerifyText, WaitForElement,
		VerifyElementPresent, CloseModal:
		return true
	}
	return false
}

// ChangesState reports whether the action may trigger a native
// dialog and should be surrounded by dialog probes.
func (k Kind) ChangesState() bool {
	return k == Click
}

// Kinds returns every recognized kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(names)-1)
	for k := OpenBrowser; k <= CloseBrowser; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
