// Package testutil provides environment helpers for the live E2E tests,
// which cannot import internal/.
package testutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the E2E suite.
const (
	EnvE2EConfig     = "SPDRIVE_E2E_CONFIG"
	EnvAllowedDrives = "SPDRIVE_ALLOWED_TEST_DRIVES"
)

// LoadDotEnv loads KEY=VALUE pairs from a .env file at envPath. A missing
// file is not an error (CI sets env vars directly). Variables already set
// in the environment win over the file.
func LoadDotEnv(envPath string) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARNING: reading %s: %v\n", envPath, err)
	}
}

// RequireCredentials returns the credentials file named by
// SPDRIVE_E2E_CONFIG and its values. It exits the process when the variable
// is unset or the file cannot be read, since nothing can run without it.
func RequireCredentials() (string, map[string]string) {
	path := os.Getenv(EnvE2EConfig)
	if path == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvE2EConfig)
		fmt.Fprintln(os.Stderr, "Point it at an msal_config.env for a test tenant.")
		os.Exit(1)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: reading %s: %v\n", path, err)
		os.Exit(1)
	}

	return path, values
}

// ValidateAllowlist exits the process unless driveID is listed in
// SPDRIVE_ALLOWED_TEST_DRIVES (comma-separated). It keeps the suite from
// writing into a production library by accident.
func ValidateAllowlist(driveID string) {
	allowlist := os.Getenv(EnvAllowedDrives)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedDrives)
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable to the test drive id.")
		os.Exit(1)
	}

	if driveID == "" {
		fmt.Fprintln(os.Stderr, "FATAL: M365_DRIVE_ID is empty in the E2E credentials file")
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == driveID {
			return
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: drive %q is not in %s\n", driveID, EnvAllowedDrives)
	os.Exit(1)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
