package browser

import (
	"context"
	"fmt"
	"log/slog"
)

// SetupError means no usable browser could be started.
type SetupError struct {
	ExecPath string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("browser: cannot start Chrome/Chromium: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Remedy tells the user how to fix the setup.
func (e *SetupError) Remedy() string {
	if e.ExecPath != "" {
		return fmt.Sprintf("check that %s exists and is a Chrome or Chromium executable, or clear browser_path in settings.toml", e.ExecPath)
	}

	return "install Google Chrome or Chromium, or set browser_path in settings.toml to the browser executable"
}

// Check starts and stops a headless browser to prove the setup works before
// any sign-in is attempted.
func Check(ctx context.Context, opts Options, logger *slog.Logger) error {
	opts.Headless = true

	p, err := Open(ctx, opts, logger)
	if err != nil {
		return &SetupError{ExecPath: opts.ExecPath, Err: err}
	}

	if err := p.Close(); err != nil {
		logger.Debug("closing check browser failed", slog.String("error", err.Error()))
	}

	logger.Debug("browser check passed")

	return nil
}
