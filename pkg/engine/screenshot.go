package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"digital.vasic.keywords/pkg/logging"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// saveScreenshot captures the viewport to
// <ScreenshotsDir>/<name>_<YYYYMMDD_HHMMSS>.png.
func (e *Engine) saveScreenshot(
	ctx context.Context,
	name string,
) (string, error) {
	data, err := e.session.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScreenshotFailed, err)
	}

	dir := e.cfg.ScreenshotsDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf(
			"failed to create screenshot directory: %w", err,
		)
	}

	name = unsafeName.ReplaceAllString(name, "_")
	path := filepath.Join(dir, fmt.Sprintf(
		"%s_%s.png", name, e.now().Format("20060102_150405"),
	))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf(
			"failed to write screenshot: %w", err,
		)
	}
	return path, nil
}

// captureFailure saves a diagnostic screenshot and returns its
// path, or "" when the capture fails.
func (e *Engine) captureFailure(ctx context.Context, name string) string {
	path, err := e.saveScreenshot(ctx, name)
	if err != nil {
		e.logger.Warn(
			"failed to capture diagnostic screenshot",
			logging.ErrorField(err),
		)
		return ""
	}
	e.logger.Error("screenshot saved", logging.StringField("path", path))
	return path
}
