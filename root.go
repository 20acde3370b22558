package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/browser"
	"github.com/spdrive/spdrive/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath   string
	flagSettingsPath string
	flagGUI          bool
	flagNoMFA        bool
	flagDriveID      bool
	flagVerbose      bool
	flagQuiet        bool
)

// Resolved by PersistentPreRunE and available to every subcommand.
var (
	credentialsPath string
	tuning          = config.DefaultTuning()
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spdrive",
		Short: "Download or upload a SharePoint file with a scripted Microsoft 365 sign-in",
		Long: `spdrive signs in to Microsoft 365 through a scripted browser login
(password, one-time code, consent and "stay signed in" screens), obtains an
access token, and downloads or uploads one file on a SharePoint, OneDrive or
Teams drive through Microsoft Graph.

Credentials and the target file are read from msal_config.env; run
"spdrive init" to create a blank one.`,
		Version: version,
		// Silence Cobra's default error/usage printing; exitOnError handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadSettings()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !flagDriveID {
				return cmd.Help()
			}

			return runDriveIDDiscovery(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&flagGUI, "gui", "G", false, "show the browser window during sign-in")
	pf.BoolVarP(&flagNoMFA, "nomfa", "N", false, "account has no one-time-code MFA (MFA_SECRET not required)")
	pf.BoolVarP(&flagDriveID, "driveid", "D", false, "sign in, list candidate drive ids, and stop")
	pf.StringVar(&flagConfigPath, "config", "", "credentials file path (default ./msal_config.env)")
	pf.StringVar(&flagSettingsPath, "settings", "", "settings file path")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newMFACodeCmd())
	cmd.AddCommand(newInitCmd())

	return cmd
}

// loadSettings resolves both file locations (default, env, CLI) and loads
// the optional tuning file. The credentials file is loaded later, by the
// commands that need it.
func loadSettings() error {
	env := config.ReadEnvOverrides()
	cli := config.CLIOverrides{
		ConfigPath:   flagConfigPath,
		SettingsPath: flagSettingsPath,
	}

	creds, settingsPath := config.ResolvePaths(env, cli)

	t, err := config.LoadTuningOrDefault(settingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	credentialsPath = creds
	tuning = t

	return nil
}

// buildLogger creates an slog.Logger configured by the settings file and
// CLI flags. The settings log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if tuning != nil {
		switch tuning.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newHTTPClient bounds connection setup and the wait for response headers.
// There is no overall request timeout: a large download or chunk may take
// far longer than any sensible header timeout.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	transport.ResponseHeaderTimeout = headerTimeout

	return &http.Client{Transport: transport}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	reportError(newConsole(os.Stderr, false), err)
	os.Exit(1)
}

// reportError prints err for the user. Configuration failures get one line
// per key; browser setup failures are followed by the fix.
func reportError(con *console, err error) {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		con.Errorf("Error: invalid configuration in %s\n", cfgErr.path)

		for _, fe := range config.FieldErrors(cfgErr) {
			con.Errorf("  %s\n", fe)
		}

		return
	}

	con.Errorf("Error: %v\n", err)

	var setupErr *browser.SetupError
	if errors.As(err, &setupErr) {
		con.Infof("%s\n", setupErr.Remedy())
	}
}
