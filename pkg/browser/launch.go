package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"digital.vasic.keywords/pkg/logging"
)

// Options configures how a browser is started or attached.
type Options struct {
	// Headless runs Chrome without a window.
	Headless bool `yaml:"headless"`

	// Width and Height set the window size.
	Width  int `yaml:"width" validate:"gte=0"`
	Height int `yaml:"height" validate:"gte=0"`

	// ExecPath overrides the Chrome binary.
	ExecPath string `yaml:"exec_path"`

	// RemoteURL attaches to a running browser's DevTools
	// websocket instead of starting one.
	RemoteURL string `yaml:"remote_url" validate:"omitempty,url"`

	// NoSandbox disables the Chrome sandbox, which containers
	// usually require.
	NoSandbox bool `yaml:"no_sandbox"`

	// PollInterval is the element query retry interval.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Logger receives chromedp errors. Nil discards them.
	Logger logging.Logger `yaml:"-"`
}

// DefaultOptions returns headless Chrome at 1920x1080.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		Width:        1920,
		Height:       1080,
		NoSandbox:    true,
		PollInterval: 500 * time.Millisecond,
	}
}

// allocatorOptions builds the exec allocator flags.
func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if o.Width > 0 && o.Height > 0 {
		opts = append(opts, chromedp.WindowSize(o.Width, o.Height))
	}
	if o.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}

// Launch starts Chrome, or attaches to RemoteURL, and opens a
// tab. The returned release func closes the tab and the
// browser and is owned by the caller.
func Launch(
	ctx context.Context, o Options,
) (*ChromeSession, func(), error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if o.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(
			ctx, o.RemoteURL,
		)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(
			ctx, o.allocatorOptions()...,
		)
	}

	var ctxOpts []chromedp.ContextOption
	if o.Logger != nil {
		logger := o.Logger
		ctxOpts = append(ctxOpts, chromedp.WithErrorf(
			func(format string, args ...any) {
				logger.Warn(
					"chromedp: " + fmt.Sprintf(format, args...),
				)
			},
		))
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)
	release := func() {
		tabCancel()
		allocCancel()
	}

	session := NewChromeSession(tabCtx, o.PollInterval)
	if err := chromedp.Run(tabCtx); err != nil {
		release()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	return session, release, nil
}
