package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir_XDGOverride(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/spdrive", DefaultConfigDir())
	assert.Equal(t, "/custom/config/spdrive/settings.toml", DefaultSettingsPath())
}

func TestDefaultConfigDir_Fallback(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux layout only")
	}

	t.Setenv("XDG_CONFIG_HOME", "")

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "spdrive"), DefaultConfigDir())
}

func TestDefaultCredentialsPath_WorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "msal_config.env"), DefaultCredentialsPath())
}
