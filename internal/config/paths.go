package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "spdrive"

// File names.
const (
	credentialsFileName = "msal_config.env"
	settingsFileName    = "settings.toml"
)

// DefaultConfigDir returns the platform-specific directory for the tuning file.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/spdrive).
// On macOS, uses ~/Library/Application Support/spdrive.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".config", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultSettingsPath returns the full path to the default tuning file.
func DefaultSettingsPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, settingsFileName)
}

// DefaultCredentialsPath is msal_config.env in the working directory, which is
// where the file has always been looked up.
func DefaultCredentialsPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return credentialsFileName
	}

	return filepath.Join(wd, credentialsFileName)
}
