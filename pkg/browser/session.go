// Package browser defines the browser session capability the
// keyword engine drives and a Chrome DevTools implementation
// of it.
package browser

import (
	"context"
	"errors"
	"time"

	"digital.vasic.keywords/pkg/locator"
)

// Interaction errors that a caller may recover from with a
// script-based fallback.
var (
	ErrInterceptedClick = errors.New("click intercepted")
	ErrNotInteractable  = errors.New("element not interactable")
)

// Dialog is a pending native alert, confirm or prompt.
type Dialog struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	DefaultPrompt string `json:"default_prompt,omitempty"`
	URL           string `json:"url,omitempty"`
}

// Session is one live browser tab. Every method blocks until
// the action completes or ctx is done; callers bound waits with
// context deadlines.
type Session interface {
	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error

	// WaitPresent blocks until the element exists in the DOM.
	WaitPresent(ctx context.Context, loc locator.Locator) error

	// WaitVisible blocks until the element is visible.
	WaitVisible(ctx context.Context, loc locator.Locator) error

	// WaitClickable blocks until the element is visible and
	// enabled.
	WaitClickable(ctx context.Context, loc locator.Locator) error

	// Click performs a real mouse click. It returns an error
	// wrapping ErrInterceptedClick when another element covers
	// the target and ErrNotInteractable when it has no size.
	Click(ctx context.Context, loc locator.Locator) error

	// ScriptClick calls the element's click() from script.
	ScriptClick(ctx context.Context, loc locator.Locator) error

	// Clear empties an input element.
	Clear(ctx context.Context, loc locator.Locator) error

	// Type sends key events for text to the element.
	Type(ctx context.Context, loc locator.Locator, text string) error

	// SetValue assigns the element's value from script and
	// fires input and change events.
	SetValue(
		ctx context.Context, loc locator.Locator, text string,
	) error

	// Text returns the element's rendered text.
	Text(ctx context.Context, loc locator.Locator) (string, error)

	// Property returns a DOM property of the element as a
	// string, such as "innerText" or "textContent".
	Property(
		ctx context.Context, loc locator.Locator, name string,
	) (string, error)

	// Hide sets display:none on the element's enclosing modal,
	// or on the element itself.
	Hide(ctx context.Context, loc locator.Locator) error

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// ProbeDialog waits up to timeout for a native dialog. It
	// returns nil and no error when none appears.
	ProbeDialog(
		ctx context.Context, timeout time.Duration,
	) (*Dialog, error)

	// HandleDialog accepts or dismisses the pending dialog.
	HandleDialog(ctx context.Context, accept bool) error
}
