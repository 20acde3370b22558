package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// interruptedError is the cancellation cause recorded when a signal stops
// the run.
type interruptedError struct {
	sig os.Signal
}

func (e *interruptedError) Error() string {
	return "interrupted by " + e.sig.String()
}

// watchInterrupts returns a context that is canceled with an
// *interruptedError on the first SIGINT or SIGTERM. The command then unwinds
// normally: the login driver closes the browser and the transfer manager
// removes its .partial file. A second signal exits at once without cleanup.
// stop releases the handler and must be called when the command returns.
func watchInterrupts(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("signal received, closing the browser and removing partial files",
				slog.String("signal", sig.String()))
			cancel(&interruptedError{sig: sig})
		case <-done:
			return
		case <-parent.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second signal received, exiting without cleanup", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-done:
		case <-parent.Done():
		}
	}()

	var once sync.Once

	stop := func() {
		once.Do(func() {
			close(done)
			cancel(context.Canceled)
		})
	}

	return ctx, stop
}

// interruptCause prefixes err with the signal that canceled ctx, so the
// report reads "interrupted by interrupt: ..." instead of a bare
// "context canceled". Other errors are returned unchanged.
func interruptCause(ctx context.Context, err error) error {
	var ie *interruptedError
	if err == nil || !errors.As(context.Cause(ctx), &ie) {
		return err
	}

	return fmt.Errorf("%w: %w", ie, err)
}
