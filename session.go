package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	webbrowser "github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/spdrive/spdrive/internal/auth"
	"github.com/spdrive/spdrive/internal/browser"
	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/graph"
	"github.com/spdrive/spdrive/internal/login"
)

// openURL opens the sign-in page for --manual. Tests replace it.
var openURL = webbrowser.OpenURL

// maxRedirectLine bounds the pasted redirect URL.
const maxRedirectLine = 64 * 1024

// signInRequest carries everything one sign-in needs.
type signInRequest struct {
	settings   *config.Settings
	tuning     *config.Tuning
	httpClient *http.Client
	useMFA     bool
	gui        bool
	manual     bool
	in         io.Reader
	out        io.Writer
}

// newGraphClient signs in and returns a Graph client using the token.
func newGraphClient(ctx context.Context, req signInRequest, logger *slog.Logger) (*graph.Client, error) {
	src, err := authenticate(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	return graph.NewClient(req.tuning.GraphBaseURL, req.httpClient, src, logger), nil
}

// authenticate runs the authorization-code flow: cached token if enabled,
// otherwise sign-in, redirect parsing and code exchange.
func authenticate(ctx context.Context, req signInRequest, logger *slog.Logger) (*auth.TokenSource, error) {
	s := req.settings
	cfg := auth.NewConfig(s.ClientID(), s.AuthorityURL(), s.RedirectURI())

	// The oauth2 package picks up the HTTP client from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, req.httpClient)

	cachePath := expandHome(req.tuning.TokenCache)
	if cachePath != "" {
		src, err := auth.CachedTokenSource(ctx, cfg, cachePath, logger)
		if err == nil {
			return src, nil
		}

		if !errors.Is(err, auth.ErrNoCachedToken) {
			logger.Warn("ignoring unreadable token cache",
				slog.String("path", cachePath),
				slog.String("error", err.Error()),
			)
		}
	}

	flow, err := auth.InitiateFlow(cfg, s.Username())
	if err != nil {
		return nil, err
	}

	var redirect string
	if req.manual {
		redirect, err = manualSignIn(flow, req.in, req.out)
	} else {
		redirect, err = browserSignIn(ctx, flow, req, logger)
	}

	if err != nil {
		return nil, err
	}

	resp, err := auth.ParseRedirect(redirect)
	if err != nil {
		return nil, err
	}

	if resp.ClientInfo != "" {
		if ci, ciErr := auth.DecodeClientInfo(resp.ClientInfo); ciErr == nil {
			logger.Info("signed in", slog.String("object_id", ci.UID), slog.String("tenant_id", ci.UTID))
		}
	}

	tok, err := flow.Exchange(ctx, cfg, resp, logger)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := auth.SaveCache(cachePath, tok); err != nil {
			logger.Warn("failed to write token cache",
				slog.String("path", cachePath),
				slog.String("error", err.Error()),
			)
		}
	}

	return auth.NewTokenSource(cfg.TokenSource(ctx, tok), logger), nil
}

// browserSignIn checks the browser setup, then drives the sign-in pages.
func browserSignIn(ctx context.Context, flow *auth.Flow, req signInRequest, logger *slog.Logger) (string, error) {
	opts := browser.Options{Headless: !req.gui, ExecPath: req.tuning.BrowserPath}

	if err := browser.Check(ctx, opts, logger); err != nil {
		return "", err
	}

	page, err := browser.Open(ctx, opts, logger)
	if err != nil {
		return "", &browser.SetupError{ExecPath: opts.ExecPath, Err: err}
	}

	timings := req.tuning.Timings()
	driver := login.NewDriver(page, login.Options{
		PageLoadDelay: timings.PageLoadDelay,
		ElementWait:   timings.ElementWait,
		RedirectWait:  timings.RedirectWait,
		UseMFA:        req.useMFA,
	}, login.Credentials{
		Username: req.settings.Username(),
		Password: req.settings.Password(),
		Secret:   req.settings.MFASecret(),
	}, logger)

	res, err := driver.Run(ctx, flow)
	if err != nil {
		return "", err
	}

	return res.RedirectURL, nil
}

// manualSignIn opens the sign-in page in the user's own browser and reads
// back the URL it was redirected to.
func manualSignIn(flow *auth.Flow, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "Sign in with your browser. If it does not open, visit:")
	fmt.Fprintln(out, flow.AuthURL)

	if err := openURL(flow.AuthURL); err != nil {
		fmt.Fprintf(out, "(could not open a browser: %v)\n", err)
	}

	fmt.Fprintf(out, "\nAfter signing in, the browser lands on an unreachable %s page.\n", flow.RedirectURI)
	fmt.Fprint(out, "Paste that page's full address here: ")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxRedirectLine)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading redirect URL: %w", err)
		}

		return "", login.ErrNoRedirect
	}

	redirect := strings.TrimSpace(scanner.Text())
	if redirect == "" {
		return "", login.ErrNoRedirect
	}

	return redirect, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
