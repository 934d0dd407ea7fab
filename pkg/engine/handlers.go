package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"digital.vasic.keywords/pkg/assertion"
	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/keyword"
	"digital.vasic.keywords/pkg/locator"
	"digital.vasic.keywords/pkg/logging"
)

func (e *Engine) registerHandlers() {
	e.handlers = map[keyword.Kind]handler{
		keyword.Unrecognized: e.unknown,
		keyword.OpenBrowser: e.marker(
			"browser already opened by the session owner",
		),
		keyword.Navigate:             e.navigate,
		keyword.Click:                e.click,
		keyword.InputText:            e.inputText,
		keyword.VerifyText:           e.verifyText,
		keyword.Wait:                 e.wait,
		keyword.WaitForElement:       e.waitForElement,
		keyword.VerifyElementPresent: e.verifyElementPresent,
		keyword.HandleAlert:          e.handleAlert,
		keyword.VerifyAlertText:      e.verifyAlertText,
		keyword.CloseModal:           e.closeModal,
		keyword.TakeScreenshot:       e.takeScreenshot,
		keyword.CloseBrowser: e.marker(
			"browser will be closed by the session owner",
		),
	}
}

func (e *Engine) unknown(_ context.Context, run *stepRun) error {
	return fmt.Errorf(
		"%w: %s", ErrUnknownKeyword, strings.TrimSpace(run.step.Keyword),
	)
}

func (e *Engine) marker(msg string) handler {
	return func(context.Context, *stepRun) error {
		e.logger.Info(msg)
		return nil
	}
}

// elementContext bounds a wait for an element.
func (e *Engine) elementContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.ElementTimeout)
}

// waitError turns a timed-out element wait into
// ErrElementNotFound. Cancellation of the run is returned as is.
func waitError(ctx context.Context, loc locator.Locator, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return fmt.Errorf("waiting for %s: %w", loc, err)
}

func (e *Engine) navigate(ctx context.Context, run *stepRun) error {
	url := strings.TrimSpace(run.step.Data)
	if url == "" {
		return fmt.Errorf("%w for navigate", ErrDataRequired)
	}
	e.logger.Info("navigating", logging.StringField("url", url))

	nctx, cancel := e.elementContext(ctx)
	defer cancel()
	if err := e.session.Navigate(nctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (e *Engine) click(ctx context.Context, run *stepRun) error {
	e.logger.Info(
		"clicking element", logging.StringField("locator", run.loc.String()),
	)
	e.clearUnexpectedDialog(ctx)

	wctx, cancel := e.elementContext(ctx)
	defer cancel()

	if err := e.session.WaitClickable(wctx, run.loc); err != nil {
		return waitError(ctx, run.loc, err)
	}

	if err := e.session.Click(wctx, run.loc); err != nil {
		if !errors.Is(err, browser.ErrInterceptedClick) &&
			!errors.Is(err, browser.ErrNotInteractable) {
			return fmt.Errorf("click %s: %w", run.loc, err)
		}
		e.logger.Warn(
			"regular click failed, attempting script click",
			logging.StringField("locator", run.loc.String()),
			logging.ErrorField(err),
		)
		if err := e.session.ScriptClick(wctx, run.loc); err != nil {
			return fmt.Errorf("script click %s: %w", run.loc, err)
		}
	}
	return nil
}

func (e *Engine) inputText(ctx context.Context, run *stepRun) error {
	e.logger.Info(
		"entering text", logging.StringField("locator", run.loc.String()),
	)

	wctx, cancel := e.elementContext(ctx)
	defer cancel()

	if err := e.session.WaitClickable(wctx, run.loc); err != nil {
		return waitError(ctx, run.loc, err)
	}

	err := e.session.Clear(wctx, run.loc)
	if err == nil {
		err = e.session.Type(wctx, run.loc, run.step.Data)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.logger.Warn(
		"regular input failed, attempting script input",
		logging.StringField("locator", run.loc.String()),
		logging.ErrorField(err),
	)
	if err := e.session.SetValue(wctx, run.loc, run.step.Data); err != nil {
		return fmt.Errorf("input text into %s: %w", run.loc, err)
	}
	return nil
}

func (e *Engine) verifyText(ctx context.Context, run *stepRun) error {
	e.logger.Info(
		"verifying text",
		logging.StringField("locator", run.loc.String()),
		logging.StringField("expected", run.step.Data),
	)

	// Dynamic content is often filled in after the previous
	// step returns.
	if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
		return err
	}

	wctx, cancel := e.elementContext(ctx)
	defer cancel()

	if err := e.session.WaitPresent(wctx, run.loc); err != nil {
		return waitError(ctx, run.loc, err)
	}

	actual, err := e.readText(wctx, run.loc)
	if err != nil {
		return fmt.Errorf("read text of %s: %w", run.loc, err)
	}
	e.logger.Info("actual text found", logging.StringField("text", actual))

	def := assertion.Parse(run.step.Data, assertion.TypeContains)
	def.Target = run.loc.String()
	res := e.assertions.Evaluate(def, actual)
	e.metrics.RecordAssertion(def.Type, res.Passed)
	if res.Passed {
		return nil
	}

	run.screenshot = e.captureFailure(ctx, "verify_text_failure")
	return fmt.Errorf("%w: %s", ErrTextMismatch, res.Message)
}

// readText returns the element's rendered text, falling back to
// innerText and then textContent when it is blank.
func (e *Engine) readText(
	ctx context.Context,
	loc locator.Locator,
) (string, error) {
	text, firstErr := e.session.Text(ctx, loc)
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}
	allFailed := firstErr != nil

	for _, prop := range []string{"innerText", "textContent"} {
		v, err := e.session.Property(ctx, loc, prop)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		allFailed = false
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}

	if allFailed {
		return "", firstErr
	}
	return "", nil
}

func (e *Engine) wait(ctx context.Context, run *stepRun) error {
	d, err := e.waitDuration(run.step.Data)
	if err != nil {
		return err
	}
	e.logger.Info("waiting", logging.DurationField("duration_ms", d))
	return e.sleep(ctx, d)
}

// maxWaitSeconds is the longest wait a time.Duration can hold.
const maxWaitSeconds = math.MaxInt64 / float64(time.Second)

// waitDuration parses a number of seconds, which may be
// fractional. Blank data selects the configured default.
func (e *Engine) waitDuration(data string) (time.Duration, error) {
	s := strings.TrimSpace(data)
	if s == "" {
		return e.cfg.DefaultWait, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 || secs >= maxWaitSeconds ||
		math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWait, s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (e *Engine) waitForElement(
	ctx context.Context,
	run *stepRun,
) error {
	e.logger.Info(
		"waiting for element to be present",
		logging.StringField("locator", run.loc.String()),
	)
	wctx, cancel := e.elementContext(ctx)
	defer cancel()
	if err := e.session.WaitPresent(wctx, run.loc); err != nil {
		return waitError(ctx, run.loc, err)
	}
	return nil
}

func (e *Engine) verifyElementPresent(
	ctx context.Context,
	run *stepRun,
) error {
	e.logger.Info(
		"verifying element is visible",
		logging.StringField("locator", run.loc.String()),
	)
	wctx, cancel := e.elementContext(ctx)
	defer cancel()
	if err := e.session.WaitVisible(wctx, run.loc); err != nil {
		return waitError(ctx, run.loc, err)
	}
	return nil
}

func (e *Engine) closeModal(ctx context.Context, run *stepRun) error {
	e.logger.Info(
		"closing modal", logging.StringField("locator", run.loc.String()),
	)

	wctx, cancel := e.elementContext(ctx)
	err := e.session.WaitClickable(wctx, run.loc)
	if err == nil {
		err = e.session.Click(wctx, run.loc)
	}
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.logger.Warn(
		"close control not clickable, hiding modal with script",
		logging.StringField("locator", run.loc.String()),
		logging.ErrorField(err),
	)
	hctx, cancel := e.elementContext(ctx)
	defer cancel()
	if err := e.session.Hide(hctx, run.loc); err != nil {
		return fmt.Errorf("close modal %s: %w", run.loc, err)
	}
	return nil
}

func (e *Engine) takeScreenshot(ctx context.Context, run *stepRun) error {
	name := strings.TrimSpace(run.step.Data)
	if name == "" {
		name = "screenshot"
	}
	e.logger.Info("taking screenshot", logging.StringField("name", name))

	path, err := e.saveScreenshot(ctx, name)
	if err != nil {
		return err
	}
	run.screenshot = path
	e.logger.Info("screenshot saved", logging.StringField("path", path))
	return nil
}
