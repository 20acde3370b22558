package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "SPDRIVE_CONFIG"
	EnvSettings = "SPDRIVE_SETTINGS"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // SPDRIVE_CONFIG: credentials file path
	SettingsPath string // SPDRIVE_SETTINGS: tuning file path
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		SettingsPath: os.Getenv(EnvSettings),
	}
}

// CLIOverrides holds values from CLI flags. Empty means "not specified".
type CLIOverrides struct {
	ConfigPath   string
	SettingsPath string
}

// ResolvePaths applies the override chain (default -> env -> CLI) to both
// config file locations.
func ResolvePaths(env EnvOverrides, cli CLIOverrides) (credentials, settings string) {
	credentials = DefaultCredentialsPath()
	if env.ConfigPath != "" {
		credentials = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		credentials = cli.ConfigPath
	}

	settings = DefaultSettingsPath()
	if env.SettingsPath != "" {
		settings = env.SettingsPath
	}

	if cli.SettingsPath != "" {
		settings = cli.SettingsPath
	}

	return credentials, settings
}
