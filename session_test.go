package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/spdrive/spdrive/internal/auth"
	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/login"
)

func testFlow(t *testing.T) *auth.Flow {
	t.Helper()

	cfg := auth.NewConfig(testClientID, testAuthorityURL, "http://localhost")
	flow, err := auth.InitiateFlow(cfg, "user@example.com")
	require.NoError(t, err)

	return flow
}

func TestManualSignIn_ReadsPastedURL(t *testing.T) {
	resetGlobals(t)

	var opened string
	openURL = func(u string) error {
		opened = u
		return nil
	}

	flow := testFlow(t)

	var out bytes.Buffer
	got, err := manualSignIn(flow, strings.NewReader("  http://localhost/?code=abc&state=xyz  \n"), &out)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost/?code=abc&state=xyz", got)
	assert.Equal(t, flow.AuthURL, opened)
	assert.Contains(t, out.String(), flow.AuthURL)
}

func TestManualSignIn_BrowserFailureStillPrompts(t *testing.T) {
	resetGlobals(t)

	openURL = func(string) error { return errors.New("no display") }

	var out bytes.Buffer
	got, err := manualSignIn(testFlow(t), strings.NewReader("http://localhost/?code=abc\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost/?code=abc", got)
	assert.Contains(t, out.String(), "could not open a browser")
}

func TestManualSignIn_EmptyInput(t *testing.T) {
	resetGlobals(t)

	openURL = func(string) error { return nil }

	for _, in := range []string{"", "\n", "   \n"} {
		_, err := manualSignIn(testFlow(t), strings.NewReader(in), &bytes.Buffer{})
		assert.ErrorIs(t, err, login.ErrNoRedirect, "input %q", in)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cache", "token.json"), expandHome("~/cache/token.json"))
	assert.Equal(t, "/var/cache/token.json", expandHome("/var/cache/token.json"))
	assert.Equal(t, "", expandHome(""))
	assert.Equal(t, "~user/token.json", expandHome("~user/token.json"))
}

// pasteBuffer answers the redirect prompt with a URL built from the flow the
// command just started, the way a user would copy it from the address bar.
type pasteBuffer struct {
	bytes.Buffer
}

func (p *pasteBuffer) paste(t *testing.T, authURL, code string) {
	t.Helper()

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	fmt.Fprintf(&p.Buffer, "http://localhost/?code=%s&state=%s&session_state=s1#\n", code, state)
}

// tokenServer is a fake authority token endpoint that accepts one code.
func tokenServer(t *testing.T, code string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token") {
			http.NotFound(w, r)
			return
		}

		if !assert.NoError(t, r.ParseForm()) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, code, r.PostForm.Get("code"))
		assert.Equal(t, testClientID, r.PostForm.Get("client_id"))
		assert.NotEmpty(t, r.PostForm.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test response
			"access_token":  "access-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

// paddedAuthority turns a test server URL into an authority URL of the
// length the validator expects.
func paddedAuthority(t *testing.T, base string) string {
	t.Helper()

	pad := len(testAuthorityURL) - len(base) - 1
	require.Positive(t, pad)

	return base + "/" + strings.Repeat("t", pad)
}

func TestDownloadCmd_ManualSignInEndToEnd(t *testing.T) {
	resetGlobals(t)

	const content = "quarterly numbers"

	tokens := tokenServer(t, "the-code")

	var graphURL string
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/content":
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Write([]byte(content)) //nolint:errcheck // test response
		case r.URL.Path == "/drives/"+testDriveID+"/root:/Shared Documents/report.txt:":
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test response
				"id":                           "item-1",
				"name":                         "report.txt",
				"size":                         len(content),
				"file":                         map[string]any{"mimeType": "text/plain"},
				"@microsoft.graph.downloadUrl": graphURL + "/content",
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(graphSrv.Close)
	graphURL = graphSrv.URL

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	values := validCredentials()
	values[config.KeyAuthorityURL] = paddedAuthority(t, tokens.URL)
	creds := credentialsFile(t, dir, values)

	cachePath := filepath.Join(dir, "token.json")
	settings := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(settings, []byte(fmt.Sprintf(
		"log_level = \"error\"\ngraph_base_url = %q\ntoken_cache = %q\n", graphSrv.URL, cachePath,
	)), 0o600))

	stdin := &pasteBuffer{}
	openURL = func(u string) error {
		stdin.paste(t, u, "the-code")
		return nil
	}

	var stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", creds, "--settings", settings, "download", "--manual", "--dir", out})
	cmd.SetIn(stdin)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.NoFileExists(t, filepath.Join(out, "report.txt.partial"))
	assert.Contains(t, stderr.String(), "Downloading Shared Documents/report.txt\n")
	assert.Contains(t, stderr.String(), "Done:")

	tok, err := auth.LoadCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestAuthenticate_UsesCachedToken(t *testing.T) {
	resetGlobals(t)

	openURL = func(string) error {
		t.Fatal("a valid cached token must skip sign-in")
		return nil
	}

	dir := t.TempDir()
	cachePath := filepath.Join(dir, "token.json")
	require.NoError(t, auth.SaveCache(cachePath, &oauth2.Token{
		AccessToken:  "cached",
		TokenType:    "Bearer",
		RefreshToken: "r",
		Expiry:       time.Now().Add(time.Hour),
	}))

	tun := config.DefaultTuning()
	tun.TokenCache = cachePath

	src, err := authenticate(context.Background(), signInRequest{
		settings:   config.NewSettings(validCredentials()),
		tuning:     tun,
		httpClient: http.DefaultClient,
		manual:     true,
		in:         strings.NewReader(""),
		out:        &bytes.Buffer{},
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	got, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}
