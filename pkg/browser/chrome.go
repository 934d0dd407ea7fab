package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"digital.vasic.keywords/pkg/locator"
)

// Scripts run against a resolved element node.
const (
	clickStateJS = `function() {
	this.scrollIntoView({block: "center", inline: "center"});
	const r = this.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) return "hidden";
	const hit = document.elementFromPoint(
		r.left + r.width / 2, r.top + r.height / 2);
	if (hit && hit !== this && !this.contains(hit)) return "intercepted";
	return "ok";
}`
	scriptClickJS = `function() { this.click(); }`
	setValueJS    = `function(v) {
	this.value = v;
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
}`
	propertyJS = `function(name) {
	const v = this[name];
	return v === undefined || v === null ? "" : String(v);
}`
	hideJS = `function() {
	const m = this.closest(".modal, [role=dialog], dialog") || this;
	m.style.display = "none";
}`
)

// ChromeSession implements Session over a chromedp tab context.
// Native dialogs are tracked from page events so that a click
// which opens one does not block the caller.
type ChromeSession struct {
	ctx  context.Context
	poll time.Duration

	mu      sync.Mutex
	pending *Dialog
	opened  chan struct{}
}

// NewChromeSession wraps a context created by
// chromedp.NewContext. poll sets the element query retry
// interval; zero keeps the chromedp default.
func NewChromeSession(
	ctx context.Context, poll time.Duration,
) *ChromeSession {
	s := &ChromeSession{
		ctx:    ctx,
		poll:   poll,
		opened: make(chan struct{}),
	}
	chromedp.ListenTarget(ctx, s.onEvent)
	return s
}

func (s *ChromeSession) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		s.mu.Lock()
		s.pending = &Dialog{
			Type:          string(e.Type),
			Message:       e.Message,
			DefaultPrompt: e.DefaultPrompt,
			URL:           e.URL,
		}
		close(s.opened)
		s.opened = make(chan struct{})
		s.mu.Unlock()
	case *page.EventJavascriptDialogClosed:
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}
}

// bind derives a chromedp context from the tab that is
// cancelled when ctx is done and honours ctx's deadline.
func (s *ChromeSession) bind(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	rctx, cancel := context.WithCancel(s.ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		rctx, cancelDeadline = context.WithDeadline(rctx, dl)
		parent := cancel
		cancel = func() {
			cancelDeadline()
			parent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

func (s *ChromeSession) run(
	ctx context.Context, actions ...chromedp.Action,
) error {
	rctx, cancel := s.bind(ctx)
	defer cancel()
	return chromedp.Run(rctx, actions...)
}

// runUntilDialog runs actions that may open a native dialog.
// Chrome holds the triggering command until the dialog is
// handled, so the call returns as soon as a dialog opens.
func (s *ChromeSession) runUntilDialog(
	ctx context.Context, actions ...chromedp.Action,
) error {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()

	rctx, cancel := s.bind(ctx)
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(rctx, actions...)
	}()

	select {
	case err := <-done:
		cancel()
		return err
	case <-opened:
		// Chrome finishes the held command once the dialog is
		// handled. Waiting for it ends with ctx, which only
		// abandons the reply.
		go func() {
			<-done
			cancel()
		}()
		return nil
	}
}

func (s *ChromeSession) queryOpts(q query) []chromedp.QueryOption {
	if s.poll > 0 {
		return q.with(chromedp.RetryInterval(s.poll))
	}
	return q.opts
}

// onNode resolves the first element matching loc and calls fn
// on it with args, decoding the return value into res.
func (s *ChromeSession) onNode(
	loc locator.Locator, fn string, res any, args ...any,
) []chromedp.Action {
	q := toQuery(loc)
	var nodes []*cdp.Node
	return []chromedp.Action{
		chromedp.Nodes(q.sel, &nodes, s.queryOpts(q)...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("no element matches %s", loc)
			}
			return callOnNode(ctx, nodes[0], fn, res, args...)
		}),
	}
}

// callOnNode resolves node to a remote object and calls fn with
// it as this. The object is released afterwards; that fails
// harmlessly when the call navigated away.
func callOnNode(
	ctx context.Context, node *cdp.Node, fn string, res any, args ...any,
) error {
	obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("resolve node: %w", err)
	}
	err = chromedp.CallFunctionOn(fn, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		},
		args...,
	).Do(ctx)
	_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
	return err
}

// Navigate loads url in the tab.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.runUntilDialog(ctx, chromedp.Navigate(url))
}

// WaitPresent blocks until the element exists in the DOM.
func (s *ChromeSession) WaitPresent(
	ctx context.Context, loc locator.Locator,
) error {
	q := toQuery(loc)
	return s.run(ctx, chromedp.WaitReady(q.sel, s.queryOpts(q)...))
}

// WaitVisible blocks until the element is visible.
func (s *ChromeSession) WaitVisible(
	ctx context.Context, loc locator.Locator,
) error {
	q := toQuery(loc)
	return s.run(ctx, chromedp.WaitVisible(q.sel, s.queryOpts(q)...))
}

// WaitClickable blocks until the element is visible and has no
// disabled attribute.
func (s *ChromeSession) WaitClickable(
	ctx context.Context, loc locator.Locator,
) error {
	q := toQuery(loc)
	opts := s.queryOpts(q)
	return s.run(ctx,
		chromedp.WaitVisible(q.sel, opts...),
		chromedp.WaitEnabled(q.sel, opts...),
	)
}

// Click checks that the element's centre is not covered, then
// dispatches a real mouse click.
func (s *ChromeSession) Click(
	ctx context.Context, loc locator.Locator,
) error {
	var state string
	if err := s.run(ctx, s.onNode(loc, clickStateJS, &state)...); err != nil {
		return err
	}
	switch state {
	case "intercepted":
		return fmt.Errorf("%w: %s", ErrInterceptedClick, loc)
	case "hidden":
		return fmt.Errorf("%w: %s", ErrNotInteractable, loc)
	}

	q := toQuery(loc)
	return s.runUntilDialog(ctx, chromedp.Click(q.sel, s.queryOpts(q)...))
}

// ScriptClick calls the element's click() from script.
func (s *ChromeSession) ScriptClick(
	ctx context.Context, loc locator.Locator,
) error {
	return s.runUntilDialog(ctx, s.onNode(loc, scriptClickJS, nil)...)
}

// Clear empties an input element.
func (s *ChromeSession) Clear(
	ctx context.Context, loc locator.Locator,
) error {
	q := toQuery(loc)
	if err := s.run(ctx, chromedp.Clear(q.sel, s.queryOpts(q)...)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInteractable, err)
	}
	return nil
}

// Type focuses the element and sends key events for text.
func (s *ChromeSession) Type(
	ctx context.Context, loc locator.Locator, text string,
) error {
	q := toQuery(loc)
	err := s.runUntilDialog(ctx, chromedp.SendKeys(q.sel, text, s.queryOpts(q)...))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInteractable, err)
	}
	return nil
}

// SetValue assigns the value from script and fires input and
// change events.
func (s *ChromeSession) SetValue(
	ctx context.Context, loc locator.Locator, text string,
) error {
	return s.run(ctx, s.onNode(loc, setValueJS, nil, text)...)
}

// Text returns the element's rendered text.
func (s *ChromeSession) Text(
	ctx context.Context, loc locator.Locator,
) (string, error) {
	q := toQuery(loc)
	var text string
	err := s.run(ctx, chromedp.Text(q.sel, &text, s.queryOpts(q)...))
	return text, err
}

// Property returns a DOM property of the element as a string.
func (s *ChromeSession) Property(
	ctx context.Context, loc locator.Locator, name string,
) (string, error) {
	var value string
	err := s.run(ctx, s.onNode(loc, propertyJS, &value, name)...)
	return value, err
}

// Hide sets display:none on the enclosing modal or the element.
func (s *ChromeSession) Hide(
	ctx context.Context, loc locator.Locator,
) error {
	return s.run(ctx, s.onNode(loc, hideJS, nil)...)
}

// Screenshot captures the viewport as PNG.
func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

// ProbeDialog returns the pending dialog, waiting up to timeout
// for one to open.
func (s *ChromeSession) ProbeDialog(
	ctx context.Context, timeout time.Duration,
) (*Dialog, error) {
	s.mu.Lock()
	if s.pending != nil {
		d := *s.pending
		s.mu.Unlock()
		return &d, nil
	}
	opened := s.opened
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-opened:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending == nil {
			return nil, nil
		}
		d := *s.pending
		return &d, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleDialog accepts or dismisses the pending dialog.
func (s *ChromeSession) HandleDialog(
	ctx context.Context, accept bool,
) error {
	err := s.run(ctx, page.HandleJavaScriptDialog(accept))
	if err != nil {
		return fmt.Errorf("handle dialog: %w", err)
	}
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return nil
}

var _ Session = (*ChromeSession)(nil)
