package engine

import (
	"context"
	"fmt"
	"strings"

	"digital.vasic.keywords/pkg/assertion"
	"digital.vasic.keywords/pkg/browser"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/monitor"
)

// clearUnexpectedDialog accepts a dialog that is open or opens
// within the probe window, so that it cannot block the next
// page command. It returns the cleared dialog, or nil.
func (e *Engine) clearUnexpectedDialog(
	ctx context.Context,
) *browser.Dialog {
	d, err := e.session.ProbeDialog(ctx, e.cfg.DialogProbe)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error(
				"error checking for unexpected alert",
				logging.ErrorField(err),
			)
		}
		return nil
	}
	if d == nil {
		return nil
	}

	e.logger.Warn(
		"unexpected alert found, auto-accepting",
		logging.StringField("text", d.Message),
	)
	e.emitDialog(d, true)
	if err := e.session.HandleDialog(ctx, true); err != nil {
		e.logger.Error(
			"failed to accept unexpected alert",
			logging.ErrorField(err),
		)
	}
	return d
}

// clearActionDialog clears a dialog raised by a state-changing
// action that no following step consumes.
func (e *Engine) clearActionDialog(ctx context.Context) {
	d := e.clearUnexpectedDialog(ctx)
	if d != nil &&
		strings.Contains(strings.ToLower(d.Message), "wrong password") {
		e.logger.Error(
			"login failed due to wrong password",
			logging.StringField("dialog", d.Message),
		)
	}
}

func (e *Engine) emitDialog(d *browser.Dialog, accept bool) {
	action := "dismissed"
	if accept {
		action = "accepted"
	}
	e.emit(monitor.StepEvent{
		Type:    monitor.EventDialog,
		Status:  action,
		Message: d.Message,
	})
}

// handleAlert waits for a dialog up to AlertAttempts times.
// A dialog matching the duplicate predicate is dismissed and
// counts as success; any other is accepted unless the data asks
// for "dismiss". No dialog at all is also a success.
func (e *Engine) handleAlert(ctx context.Context, run *stepRun) error {
	action := strings.ToLower(strings.TrimSpace(run.step.Data))
	if action == "" {
		action = "accept"
	}
	e.logger.Info(
		"handling alert", logging.StringField("action", action),
	)

	attempts := max(e.cfg.AlertAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		d, err := e.session.ProbeDialog(ctx, e.cfg.DialogTimeout)
		if err != nil {
			return fmt.Errorf("wait for alert: %w", err)
		}
		if d == nil {
			e.logger.Debug(
				"no alert yet",
				logging.IntField("attempt", attempt),
				logging.IntField("attempts", attempts),
			)
			if attempt < attempts {
				if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
					return err
				}
			}
			continue
		}

		e.logger.Info("alert text", logging.StringField("text", d.Message))

		accept := action != "dismiss"
		if e.isDuplicate(d.Message) {
			e.logger.Warn(
				"alert reports an existing record, continuing",
				logging.StringField("text", d.Message),
			)
			accept = false
		}

		e.emitDialog(d, accept)
		if err := e.session.HandleDialog(ctx, accept); err != nil {
			return fmt.Errorf("handle alert: %w", err)
		}
		return e.sleep(ctx, e.cfg.SettleDelay)
	}

	e.logger.Warn(
		"no alert present to handle after multiple attempts",
		logging.IntField("attempts", attempts),
	)
	return nil
}

// verifyAlertText checks that the pending dialog contains the
// data text, case-sensitively, and accepts the dialog either
// way so that it cannot block later steps.
func (e *Engine) verifyAlertText(
	ctx context.Context,
	run *stepRun,
) error {
	e.logger.Info(
		"verifying alert text",
		logging.StringField("expected", run.step.Data),
	)

	d, err := e.session.ProbeDialog(ctx, e.cfg.DialogTimeout)
	if err != nil {
		return fmt.Errorf("wait for alert: %w", err)
	}
	if d == nil {
		return ErrNoDialog
	}

	text := strings.TrimSpace(d.Message)
	e.logger.Info("alert text found", logging.StringField("text", text))

	def := assertion.Definition{
		Type:   assertion.TypeContainsExact,
		Target: "dialog",
		Value:  run.step.Data,
	}
	res := e.assertions.Evaluate(def, text)
	e.metrics.RecordAssertion(def.Type, res.Passed)

	e.emitDialog(d, true)
	if err := e.session.HandleDialog(ctx, true); err != nil {
		return fmt.Errorf("accept alert: %w", err)
	}

	if !res.Passed {
		return fmt.Errorf("%w: %s", ErrDialogMismatch, res.Message)
	}
	return nil
}
