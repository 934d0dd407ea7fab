// Package browsertest provides a scripted in-memory
// browser.Session for testing code that drives a browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/locator"
)

// ErrDialogOpen is returned by element operations while a
// native dialog is pending, the way a real browser refuses to
// run page commands until it is handled.
var ErrDialogOpen = errors.New("unexpected alert open")

// PNG is the placeholder image returned by Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Element is a scripted DOM element.
type Element struct {
	Text        string
	InnerText   string
	TextContent string
	Value       string

	Hidden          bool
	Disabled        bool
	Intercepted     bool
	NotInteractable bool

	// TextFunc, when set, computes the rendered text from the
	// current page state.
	TextFunc func(f *Fake) string

	// OnClick runs after a successful real or script click.
	OnClick func(f *Fake)

	Clicks       int
	ScriptClicks int
}

// HandledDialog records one HandleDialog call.
type HandledDialog struct {
	Message string
	Accept  bool
}

type scheduled struct {
	dialog      browser.Dialog
	afterProbes int
}

// Fake is a scripted browser.Session. Elements are keyed by
// the locator's canonical "strategy=value" string.
type Fake struct {
	mu        sync.Mutex
	URL       string
	elements  map[string]*Element
	pending   *browser.Dialog
	schedule  []scheduled
	probes    int
	failures  map[string]error
	calls     []string
	handled   []HandledDialog
	shots     int
	hiddenBy  []string
	navigated []string
}

// New returns an empty page.
func New() *Fake {
	return &Fake{
		elements: make(map[string]*Element),
		failures: make(map[string]error),
	}
}

// Add registers an element under the given locator string.
func (f *Fake) Add(loc string, el *Element) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[locator.MustParse(loc).String()] = el
	return f
}

// Element returns the element registered for loc, or nil. It
// does not lock and is meant for TextFunc and OnClick callbacks,
// which run with the fake locked. Use Lookup elsewhere.
func (f *Fake) Element(loc string) *Element {
	return f.elements[locator.MustParse(loc).String()]
}

// Lookup is Element for callers outside callbacks.
func (f *Fake) Lookup(loc string) *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Element(loc)
}

// OpenDialog makes a native dialog pending immediately. Like
// Element it is for callbacks; use ShowDialog elsewhere.
func (f *Fake) OpenDialog(message string) {
	f.pending = &browser.Dialog{Type: "alert", Message: message}
}

// ShowDialog is OpenDialog for callers outside callbacks.
func (f *Fake) ShowDialog(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenDialog(message)
}

// ScheduleDialog makes a dialog appear on the n-th following
// ProbeDialog call.
func (f *Fake) ScheduleDialog(message string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedule = append(f.schedule, scheduled{
		dialog:      browser.Dialog{Type: "alert", Message: message},
		afterProbes: f.probes + n,
	})
}

// FailOn makes every call of the named method return err.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Calls returns the method call log.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Handled returns every handled dialog in order.
func (f *Fake) Handled() []HandledDialog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]HandledDialog(nil), f.handled...)
}

// Pending returns the pending dialog, or nil.
func (f *Fake) Pending() *browser.Dialog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Screenshots returns how many screenshots were captured.
func (f *Fake) Screenshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shots
}

// Navigated returns every URL loaded.
func (f *Fake) Navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

// Hidden returns the locators passed to Hide.
func (f *Fake) Hidden() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hiddenBy...)
}

// begin records the call and applies blocking and injected
// failures. It must be called with f.mu held.
func (f *Fake) begin(method string, blocking bool) error {
	f.calls = append(f.calls, method)
	if err := f.failures[method]; err != nil {
		return err
	}
	if blocking && f.pending != nil {
		return fmt.Errorf("%w: %s", ErrDialogOpen, f.pending.Message)
	}
	return nil
}

func (f *Fake) find(
	ctx context.Context, loc locator.Locator,
) (*Element, error) {
	el, ok := f.elements[loc.String()]
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf(
			"waiting for %s: %w", loc, context.DeadlineExceeded,
		)
	}
	return el, nil
}

func (f *Fake) click(el *Element) {
	if el.OnClick != nil {
		el.OnClick(f)
	}
}

// Navigate loads url.
func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Navigate", true); err != nil {
		return err
	}
	f.URL = url
	f.navigated = append(f.navigated, url)
	return nil
}

// WaitPresent succeeds when the element is registered.
func (f *Fake) WaitPresent(
	ctx context.Context, loc locator.Locator,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("WaitPresent", true); err != nil {
		return err
	}
	_, err := f.find(ctx, loc)
	return err
}

// WaitVisible succeeds when the element is registered and not
// hidden.
func (f *Fake) WaitVisible(
	ctx context.Context, loc locator.Locator,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("WaitVisible", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	if el.Hidden {
		return fmt.Errorf(
			"%s not visible: %w", loc, context.DeadlineExceeded,
		)
	}
	return nil
}

// WaitClickable additionally requires the element to be
// enabled.
func (f *Fake) WaitClickable(
	ctx context.Context, loc locator.Locator,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("WaitClickable", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	if el.Hidden || el.Disabled {
		return fmt.Errorf(
			"%s not clickable: %w", loc, context.DeadlineExceeded,
		)
	}
	return nil
}

// Click clicks the element unless it is scripted as
// intercepted or not interactable.
func (f *Fake) Click(ctx context.Context, loc locator.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Click", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	switch {
	case el.Intercepted:
		return fmt.Errorf("%w: %s", browser.ErrInterceptedClick, loc)
	case el.NotInteractable:
		return fmt.Errorf("%w: %s", browser.ErrNotInteractable, loc)
	}
	el.Clicks++
	f.click(el)
	return nil
}

// ScriptClick clicks the element regardless of overlays.
func (f *Fake) ScriptClick(
	ctx context.Context, loc locator.Locator,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ScriptClick", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	el.ScriptClicks++
	f.click(el)
	return nil
}

// Clear empties the element's value.
func (f *Fake) Clear(ctx context.Context, loc locator.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Clear", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	if el.NotInteractable {
		return fmt.Errorf("%w: %s", browser.ErrNotInteractable, loc)
	}
	el.Value = ""
	return nil
}

// Type appends text to the element's value.
func (f *Fake) Type(
	ctx context.Context, loc locator.Locator, text string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Type", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	if el.NotInteractable {
		return fmt.Errorf("%w: %s", browser.ErrNotInteractable, loc)
	}
	el.Value += text
	return nil
}

// SetValue replaces the element's value.
func (f *Fake) SetValue(
	ctx context.Context, loc locator.Locator, text string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("SetValue", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	el.Value = text
	return nil
}

// Text returns the scripted rendered text.
func (f *Fake) Text(
	ctx context.Context, loc locator.Locator,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Text", true); err != nil {
		return "", err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return "", err
	}
	if el.TextFunc != nil {
		return el.TextFunc(f), nil
	}
	return el.Text, nil
}

// Property supports innerText, textContent and value.
func (f *Fake) Property(
	ctx context.Context, loc locator.Locator, name string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Property", true); err != nil {
		return "", err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return "", err
	}
	switch name {
	case "innerText":
		return el.InnerText, nil
	case "textContent":
		return el.TextContent, nil
	case "value":
		return el.Value, nil
	}
	return "", nil
}

// Hide marks the element hidden.
func (f *Fake) Hide(ctx context.Context, loc locator.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Hide", true); err != nil {
		return err
	}
	el, err := f.find(ctx, loc)
	if err != nil {
		return err
	}
	el.Hidden = true
	f.hiddenBy = append(f.hiddenBy, loc.String())
	return nil
}

// Screenshot returns PNG.
func (f *Fake) Screenshot(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Screenshot", true); err != nil {
		return nil, err
	}
	f.shots++
	return PNG, nil
}

// ProbeDialog returns the pending dialog. Scheduled dialogs
// become pending when their probe count is reached. It never
// sleeps.
func (f *Fake) ProbeDialog(
	ctx context.Context, _ time.Duration,
) (*browser.Dialog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ProbeDialog", false); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.probes++
	if f.pending == nil {
		for i, s := range f.schedule {
			if f.probes >= s.afterProbes {
				d := s.dialog
				f.pending = &d
				f.schedule = append(f.schedule[:i], f.schedule[i+1:]...)
				break
			}
		}
	}
	if f.pending == nil {
		return nil, nil
	}
	d := *f.pending
	return &d, nil
}

// HandleDialog clears the pending dialog.
func (f *Fake) HandleDialog(_ context.Context, accept bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("HandleDialog", false); err != nil {
		return err
	}
	if f.pending == nil {
		return errors.New("no dialog is showing")
	}
	f.handled = append(f.handled, HandledDialog{
		Message: f.pending.Message,
		Accept:  accept,
	})
	f.pending = nil
	return nil
}

var _ browser.Session = (*Fake)(nil)
