package auth

import (
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// TokenSource adapts an oauth2.TokenSource to the Token() (string, error)
// shape the Graph client consumes. Every acquisition is logged so refresh
// activity is visible.
type TokenSource struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// NewTokenSource wraps src.
func NewTokenSource(src oauth2.TokenSource, logger *slog.Logger) *TokenSource {
	return &TokenSource{src: src, logger: logger}
}

// Token returns the current access token.
func (s *TokenSource) Token() (string, error) {
	t, err := s.src.Token()
	if err != nil {
		s.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("auth: obtaining token: %w", err)
	}

	s.logger.Debug("token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t.AccessToken, nil
}
