package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// credentialsFilePermissions keeps the password and MFA secret owner-only.
const credentialsFilePermissions = 0o600

// ErrConfigExists is returned by WriteTemplate when the target file exists.
var ErrConfigExists = errors.New("config: file already exists")

const templateHeader = `# spdrive credentials
# Fill in every value, then run the command again.
# CLIENT_ID and AUTHORITY_URL come from the Entra ID app registration;
# MFA_SECRET is the secret of an authenticator-app (TOTP) sign-in method.
`

// WriteTemplate creates a blank credentials file containing every key in
// TemplateKeys. It never overwrites an existing file.
func WriteTemplate(path string) error {
	blank := make(map[string]string, len(TemplateKeys))
	for _, k := range TemplateKeys {
		blank[k] = ""
	}

	body, err := godotenv.Marshal(blank)
	if err != nil {
		return fmt.Errorf("config: rendering template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, credentialsFilePermissions)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}

		return fmt.Errorf("config: creating %s: %w", path, err)
	}

	if _, err := f.WriteString(templateHeader + body + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("config: closing %s: %w", path, err)
	}

	return nil
}
