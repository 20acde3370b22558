package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spdrive/spdrive/internal/browser"
	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/totp"
)

// Values with the exact lengths the validator expects.
var (
	testClientID     = "11111111-2222-3333-4444-555555555555"
	testAuthorityURL = "https://login.microsoftonline.com/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	testDriveID      = "b!" + strings.Repeat("x", 64)
	testSecret       = "JBSWY3DPEHPK3PXP"
)

// resetGlobals restores every package-level variable a command may touch.
func resetGlobals(t *testing.T) {
	t.Helper()

	savedTerminal := stdinIsTerminal
	savedNow := now
	savedOpenURL := openURL

	t.Cleanup(func() {
		flagConfigPath = ""
		flagSettingsPath = ""
		flagGUI = false
		flagNoMFA = false
		flagDriveID = false
		flagVerbose = false
		flagQuiet = false
		credentialsPath = ""
		tuning = config.DefaultTuning()
		stdinIsTerminal = savedTerminal
		now = savedNow
		openURL = savedOpenURL
	})
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(ctx)

	return stdout.String(), stderr.String(), err
}

// credentialsFile renders values as a dotenv file in dir.
func credentialsFile(t *testing.T, dir string, values map[string]string) string {
	t.Helper()

	var b strings.Builder
	for k, v := range values {
		b.WriteString(k + "=" + v + "\n")
	}

	path := filepath.Join(dir, "msal_config.env")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	return path
}

func validCredentials() map[string]string {
	return map[string]string{
		config.KeyClientID:     testClientID,
		config.KeyAuthorityURL: testAuthorityURL,
		config.KeyDriveID:      testDriveID,
		config.KeyItemPath:     "Shared Documents",
		config.KeyFilename:     "report.txt",
		config.KeyMFASecret:    testSecret,
		config.KeyUsername:     "user@example.com",
		config.KeyPassword:     "hunter2",
	}
}

func TestBuildLogger_Levels(t *testing.T) {
	resetGlobals(t)

	tests := []struct {
		name     string
		logLevel string
		verbose  bool
		quiet    bool
		want     slog.Level
	}{
		{name: "default info", logLevel: "info", want: slog.LevelInfo},
		{name: "settings debug", logLevel: "debug", want: slog.LevelDebug},
		{name: "settings warn", logLevel: "warn", want: slog.LevelWarn},
		{name: "verbose wins", logLevel: "error", verbose: true, want: slog.LevelDebug},
		{name: "quiet wins", logLevel: "debug", quiet: true, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning = config.DefaultTuning()
			tuning.LogLevel = tt.logLevel
			flagVerbose = tt.verbose
			flagQuiet = tt.quiet

			logger := buildLogger()
			ctx := context.Background()

			assert.True(t, logger.Enabled(ctx, tt.want))

			if tt.want > slog.LevelDebug {
				assert.False(t, logger.Enabled(ctx, tt.want-1))
			}
		})
	}
}

func TestNewHTTPClient_HeaderTimeoutOnly(t *testing.T) {
	client := newHTTPClient(7 * time.Second)

	assert.Zero(t, client.Timeout)
	require.NotNil(t, client.Transport)
}

func TestRootCmd_NoArgsShowsHelp(t *testing.T) {
	resetGlobals(t)

	stdout, _, err := execute(t, "", "--settings", filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "download")
	assert.Contains(t, stdout, "mfa-code")
}

func TestInitCmd_WritesTemplate(t *testing.T) {
	resetGlobals(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "msal_config.env")

	_, stderr, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Template written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, k := range config.TemplateKeys {
		assert.Contains(t, string(data), k+"=")
	}
}

func TestInitCmd_ExistingFileKept(t *testing.T) {
	resetGlobals(t)

	dir := t.TempDir()
	path := credentialsFile(t, dir, validCredentials())

	_, _, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "init")
	require.ErrorIs(t, err, config.ErrConfigExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), testClientID)
}

func TestMFACodeCmd_PrintsCurrentCode(t *testing.T) {
	resetGlobals(t)

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }

	dir := t.TempDir()
	path := credentialsFile(t, dir, map[string]string{config.KeyMFASecret: testSecret})

	stdout, stderr, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "mfa-code")
	require.NoError(t, err)

	want, err := totp.Code(testSecret, fixed)
	require.NoError(t, err)
	assert.Equal(t, want+"\n", stdout)
	assert.Contains(t, stderr, "valid for 25s")
}

func TestMFACodeCmd_MissingSecret(t *testing.T) {
	resetGlobals(t)

	dir := t.TempDir()
	path := credentialsFile(t, dir, map[string]string{config.KeyUsername: "user@example.com"})

	_, _, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "mfa-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.KeyMFASecret)
}

func TestDownloadCmd_InvalidConfigStopsBeforeSignIn(t *testing.T) {
	resetGlobals(t)

	openURL = func(string) error {
		t.Fatal("sign-in must not start with an invalid configuration")
		return nil
	}

	values := validCredentials()
	values[config.KeyClientID] = "too-short"
	values[config.KeyPassword] = ""

	dir := t.TempDir()
	path := credentialsFile(t, dir, values)

	_, _, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "download", "--manual")
	require.Error(t, err)

	fields := config.FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, config.KeyClientID, fields[0].Key)
	assert.Equal(t, config.ProblemLength, fields[0].Problem)
	assert.Equal(t, config.KeyPassword, fields[1].Key)
	assert.Contains(t, err.Error(), "improper length")
}

func TestUploadCmd_InvalidSecretStopsBeforeSignIn(t *testing.T) {
	resetGlobals(t)

	openURL = func(string) error {
		t.Fatal("sign-in must not start with an unusable MFA_SECRET")
		return nil
	}

	values := validCredentials()
	values[config.KeyMFASecret] = "not-base32-!!!1890"

	dir := t.TempDir()
	path := credentialsFile(t, dir, values)

	_, _, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "upload", "--manual")
	require.Error(t, err)

	fields := config.FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, config.KeyMFASecret, fields[0].Key)
	assert.Equal(t, config.ProblemBase32, fields[0].Problem)

	// With --nomfa the secret is not needed, so it is not checked either.
	values[config.KeyMFASecret] = ""
	values[config.KeyPassword] = ""
	credentialsFile(t, dir, values)

	_, _, err = execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "--nomfa", "upload", "--manual")
	fields = config.FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, config.KeyPassword, fields[0].Key)
}

func TestReportError_ConfigErrorOneLinePerKey(t *testing.T) {
	values := validCredentials()
	values[config.KeyClientID] = "too-short"
	delete(values, config.KeyFilename)

	err := &configError{
		path: "msal_config.env",
		err:  config.NewSettings(values).Validate(config.ModeTransfer, true),
	}

	var buf bytes.Buffer
	reportError(newConsole(&buf, false), err)

	assert.Equal(t, "Error: invalid configuration in msal_config.env\n"+
		"  CLIENT_ID: improper length 9 (want 36)\n"+
		"  M365_FILENAME: missing from config file\n", buf.String())
}

func TestReportError_BrowserSetupRemedy(t *testing.T) {
	var buf bytes.Buffer
	reportError(newConsole(&buf, false), &browser.SetupError{ExecPath: "/opt/chrome", Err: assert.AnError})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Error: browser: cannot start Chrome/Chromium"))
	assert.Contains(t, out, "check that /opt/chrome exists")
}

func TestReportError_Plain(t *testing.T) {
	var buf bytes.Buffer
	reportError(newConsole(&buf, false), assert.AnError)

	assert.Equal(t, "Error: "+assert.AnError.Error()+"\n", buf.String())
}

func TestDownloadCmd_MissingConfigNonInteractive(t *testing.T) {
	resetGlobals(t)

	stdinIsTerminal = func() bool { return false }

	dir := t.TempDir()
	path := filepath.Join(dir, "msal_config.env")

	_, stderr, err := execute(t, "", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "download")
	require.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Contains(t, stderr, "Configuration file not found")

	assert.NoFileExists(t, path)
}

func TestDownloadCmd_MissingConfigTemplateAccepted(t *testing.T) {
	resetGlobals(t)

	stdinIsTerminal = func() bool { return true }

	dir := t.TempDir()
	path := filepath.Join(dir, "msal_config.env")

	_, stderr, err := execute(t, "yes\n", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "upload")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Template written")
	assert.FileExists(t, path)
}

func TestRootCmd_BadSettingsFile(t *testing.T) {
	resetGlobals(t)

	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(settings, []byte("log_levle = \"debug\"\n"), 0o600))

	_, _, err := execute(t, "", "--settings", settings, "mfa-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestDownloadCmd_MissingConfigTemplateDeclined(t *testing.T) {
	resetGlobals(t)

	stdinIsTerminal = func() bool { return true }

	dir := t.TempDir()
	path := filepath.Join(dir, "msal_config.env")

	_, _, err := execute(t, "no\n", "--config", path, "--settings", filepath.Join(dir, "none.toml"), "download")
	require.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.NoFileExists(t, path)
}
