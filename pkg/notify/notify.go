// Package notify sends a run summary to chat, mail or webhook
// services addressed by Shoutrrr URLs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"digital.vasic.keywords/pkg/env"
	"digital.vasic.keywords/pkg/logging"
	"digital.vasic.keywords/pkg/report"
)

// SendFunc delivers message to the service at url.
type SendFunc func(url, message string) error

// Notifier renders and sends run summaries.
type Notifier struct {
	urls          []string
	template      string
	onlyOnFailure bool
	send          SendFunc
	logger        logging.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTemplate replaces DefaultTemplate. Empty keeps it.
func WithTemplate(tmpl string) Option {
	return func(n *Notifier) {
		if tmpl != "" {
			n.template = tmpl
		}
	}
}

// OnlyOnFailure suppresses notifications for passing runs.
func OnlyOnFailure(enabled bool) Option {
	return func(n *Notifier) {
		n.onlyOnFailure = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithSendFunc replaces the Shoutrrr transport.
func WithSendFunc(send SendFunc) Option {
	return func(n *Notifier) {
		n.send = send
	}
}

// New creates a Notifier for the given service URLs.
func New(urls []string, opts ...Option) *Notifier {
	n := &Notifier{
		urls:     urls,
		template: DefaultTemplate,
		send:     Send,
		logger:   logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether any service is configured.
func (n *Notifier) Enabled() bool {
	return len(n.urls) > 0
}

// Notify renders the summary and sends it to every service.
// Every service is tried; the returned error joins all send
// failures. It reports whether a message was sent.
func (n *Notifier) Notify(
	ctx context.Context,
	summary *report.SuiteSummary,
) (bool, error) {
	if !n.Enabled() {
		return false, nil
	}
	if n.onlyOnFailure && summary.Passed() {
		n.logger.Debug("run passed, notification skipped")
		return false, nil
	}

	msg, err := Render(n.template, BuildTemplateData(summary))
	if err != nil {
		return false, fmt.Errorf("failed to render notification: %w", err)
	}

	services := env.RedactURLs(n.urls)
	n.logger.Info(
		"sending notifications",
		logging.StringField("services", strings.Join(services, ", ")),
	)

	var (
		errs []error
		sent int
	)
	for i, url := range n.urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		redacted := services[i]
		if err := n.send(url, msg); err != nil {
			n.logger.Error(
				"notification failed",
				logging.StringField("service", redacted),
				logging.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", redacted, err))
			continue
		}
		sent++
		n.logger.Info(
			"notification sent",
			logging.StringField("service", redacted),
		)
	}
	return sent > 0, errors.Join(errs...)
}

// Send delivers message via Shoutrrr.
func Send(url, message string) error {
	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return fmt.Errorf("creating sender: %w", err)
	}

	params := types.Params{}
	for _, e := range sender.Send(message, &params) {
		if e != nil {
			return fmt.Errorf("sending: %w", e)
		}
	}
	return nil
}
