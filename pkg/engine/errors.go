package engine

import "errors"

// Step failure causes. Step results carry the message of the
// wrapping error; callers of ExecuteSteps only see these through
// StepResult.Message.
var (
	ErrUnknownKeyword   = errors.New("unknown keyword")
	ErrLocatorRequired  = errors.New("locator is required")
	ErrDataRequired     = errors.New("data is required")
	ErrElementNotFound  = errors.New("element not found")
	ErrTextMismatch     = errors.New("text mismatch")
	ErrNoDialog         = errors.New("no alert present to verify")
	ErrDialogMismatch   = errors.New("alert text mismatch")
	ErrInvalidWait      = errors.New("invalid wait duration")
	ErrSessionRequired  = errors.New("browser session is required")
	ErrStepPanicked     = errors.New("step panicked")
	ErrScreenshotFailed = errors.New("screenshot failed")
)
