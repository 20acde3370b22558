package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// Cache files hold a bearer and refresh token, so they are owner-only.
const (
	cacheFilePerms = 0o600
	cacheDirPerms  = 0o700
)

// ErrNoCachedToken means the cache is missing or holds nothing usable; the
// caller falls back to a full sign-in.
var ErrNoCachedToken = errors.New("auth: no usable cached token")

// cacheFile is the on-disk format of the token cache.
type cacheFile struct {
	Token *oauth2.Token `json:"token"`
}

// LoadCache reads a cached token. A missing file yields ErrNoCachedToken.
func LoadCache(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCachedToken
	}

	if err != nil {
		return nil, fmt.Errorf("auth: reading token cache %s: %w", path, err)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("auth: decoding token cache %s: %w", path, err)
	}

	if cf.Token == nil {
		return nil, ErrNoCachedToken
	}

	return cf.Token, nil
}

// SaveCache writes tok to path atomically (temp file + rename).
func SaveCache(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(cacheFile{Token: tok})
	if err != nil {
		return fmt.Errorf("auth: encoding token cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, cacheDirPerms); err != nil {
		return fmt.Errorf("auth: creating token cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("auth: creating temp token file: %w", err)
	}

	tmpPath := tmp.Name()

	if err := tmp.Chmod(cacheFilePerms); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("auth: setting token cache permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("auth: writing token cache: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("auth: closing token cache: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("auth: renaming token cache into place: %w", err)
	}

	return nil
}

// CachedTokenSource returns a refreshing token source seeded from the cache
// at path. Refreshed tokens are written back. A cached token that is expired
// and has no refresh token is not usable.
func CachedTokenSource(ctx context.Context, cfg *oauth2.Config, path string, logger *slog.Logger) (*TokenSource, error) {
	tok, err := LoadCache(path)
	if err != nil {
		return nil, err
	}

	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, ErrNoCachedToken
	}

	logger.Info("using cached token",
		slog.String("path", path),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", !tok.Valid()),
	)

	src := &persistingSource{
		src:    cfg.TokenSource(ctx, tok),
		path:   path,
		last:   tok.AccessToken,
		logger: logger,
	}

	return NewTokenSource(src, logger), nil
}

// persistingSource saves the token whenever the underlying source hands out
// a new access token.
type persistingSource struct {
	src    oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.last {
		return tok, nil
	}

	p.last = tok.AccessToken

	if err := SaveCache(p.path, tok); err != nil {
		p.logger.Warn("failed to persist refreshed token",
			slog.String("path", p.path),
			slog.String("error", err.Error()),
		)
	} else {
		p.logger.Info("persisted refreshed token", slog.String("path", p.path))
	}

	return tok, nil
}
