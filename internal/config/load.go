package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// ErrConfigNotFound is returned by Load when the credentials file does not exist.
var ErrConfigNotFound = errors.New("config: credentials file not found")

// Load reads the dotenv credentials file at path. Process environment
// variables with the same names take precedence over file values, so a value
// exported in the shell wins over the file. Load never validates; call
// Validate before using the result.
func Load(path string) (*Settings, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}

		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnv(values)

	return &Settings{Source: path, values: values}, nil
}

// applyEnv copies known keys from the process environment into values.
func applyEnv(values map[string]string) {
	for _, key := range knownKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
}
