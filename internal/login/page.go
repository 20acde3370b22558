// Package login drives the interactive Entra ID sign-in pages: username,
// password, one-time code, consent and "stay signed in?" screens, followed
// by capture of the redirect that carries the authorization code.
package login

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by the driver and Page implementations.
var (
	// ErrElementNotFound is returned by Page.WaitFor when the element does
	// not become visible within the timeout. The driver treats it as "this
	// screen was not shown" and moves on.
	ErrElementNotFound = errors.New("login: element not found")
	// ErrNoRedirect means the browser never reached the redirect URI.
	ErrNoRedirect = errors.New("login: redirect URL was not captured")
)

// EnterKey typed at the end of a Type call submits the form.
const EnterKey = "\r"

// Page is the browser surface the driver needs. Elements are addressed by
// their DOM id.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, id string, timeout time.Duration) error
	Type(ctx context.Context, id, text string) error
	Click(ctx context.Context, id string) error
	Text(ctx context.Context, id string) (string, error)
	// CaptureRedirect waits for a navigation to a URL starting with prefix
	// and returns it.
	CaptureRedirect(ctx context.Context, prefix string, timeout time.Duration) (string, error)
	Close() error
}
