// Package auth implements the OAuth2 authorization-code + PKCE flow against
// an Entra ID authority: building the sign-in URL, parsing the redirect the
// browser lands on, exchanging the code for a token, and optionally caching
// the token between runs.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
)

// Authority endpoint paths (Microsoft identity platform v2.0).
const (
	authorizePath = "/oauth2/v2.0/authorize"
	tokenPath     = "/oauth2/v2.0/token"
)

// randomTokenBytes is the number of random bytes in the state and nonce values.
const randomTokenBytes = 16

// DefaultScopes are requested on every sign-in. The Graph scopes must be
// granted to the app registration; the OpenID scopes are what MSAL adds.
var DefaultScopes = []string{
	"offline_access",
	"openid",
	"profile",
	"Files.ReadWrite.All",
	"Sites.Read.All",
}

// Errors returned by Flow.Exchange.
var (
	ErrFlowConsumed  = errors.New("auth: flow already used for a token exchange")
	ErrStateMismatch = errors.New("auth: redirect state does not match the flow")
)

// NewConfig builds the OAuth2 config for a public client. authorityURL is the
// tenant authority, e.g. https://login.microsoftonline.com/<tenant-id>.
func NewConfig(clientID, authorityURL, redirectURI string) *oauth2.Config {
	authority := strings.TrimRight(authorityURL, "/")

	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authority + authorizePath,
			TokenURL:  authority + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Flow is the short-lived context of one sign-in: the URL the browser opens
// and the state and PKCE verifier needed to redeem the code. A Flow is used
// for exactly one exchange and is never persisted.
type Flow struct {
	AuthURL     string
	RedirectURI string
	State       string
	Nonce       string

	verifier string
	consumed bool
}

// InitiateFlow starts a sign-in for loginHint (the username, pre-filled on
// the sign-in page; may be empty).
func InitiateFlow(cfg *oauth2.Config, loginHint string) (*Flow, error) {
	state, err := randomHex()
	if err != nil {
		return nil, fmt.Errorf("auth: generating state: %w", err)
	}

	nonce, err := randomHex()
	if err != nil {
		return nil, fmt.Errorf("auth: generating nonce: %w", err)
	}

	verifier := oauth2.GenerateVerifier()

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	}

	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}

	return &Flow{
		AuthURL:     cfg.AuthCodeURL(state, opts...),
		RedirectURI: cfg.RedirectURL,
		State:       state,
		Nonce:       nonce,
		verifier:    verifier,
	}, nil
}

// Exchange redeems the authorization code in resp for a token. The flow is
// marked used before anything else happens, so a failed exchange cannot be
// retried with the same code.
func (f *Flow) Exchange(ctx context.Context, cfg *oauth2.Config, resp AuthResponse, logger *slog.Logger) (*oauth2.Token, error) {
	if f.consumed {
		return nil, ErrFlowConsumed
	}

	f.consumed = true

	if resp.State != f.State {
		return nil, ErrStateMismatch
	}

	logger.Info("exchanging authorization code for token",
		slog.Bool("has_client_info", resp.ClientInfo != ""),
		slog.Bool("has_session_state", resp.SessionState != ""),
	)

	tok, err := cfg.Exchange(ctx, resp.Code,
		oauth2.VerifierOption(f.verifier),
		oauth2.SetAuthURLParam("client_info", "1"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange failed: %w", err)
	}

	logger.Info("token exchange successful", slog.Time("expiry", tok.Expiry))

	return tok, nil
}

func randomHex() (string, error) {
	b := make([]byte, randomTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
