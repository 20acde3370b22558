// Package config loads and validates spdrive's two configuration sources: the
// dotenv credentials file (msal_config.env by default) and the optional TOML
// tuning file. The credentials file is a flat key-value record; every value is
// a string and presence is tracked separately from emptiness so validation can
// report "missing" and "empty" as different problems.
package config

import "strings"

// Credentials file keys.
const (
	KeyClientID     = "CLIENT_ID"
	KeyAuthorityURL = "AUTHORITY_URL"
	KeyDriveID      = "M365_DRIVE_ID"
	KeyItemPath     = "M365_ITEM_PATH"
	KeyFilename     = "M365_FILENAME"
	KeyMFASecret    = "MFA_SECRET"
	KeyUsername     = "M365_USERNAME"
	KeyPassword     = "M365_PASSWORD"
	KeyRedirectURI  = "REDIRECT_URI"

	// KeyFolderPath is read when M365_ITEM_PATH is absent or blank. Older
	// config files used this name for the same remote folder.
	KeyFolderPath = "M365_FOLDER_PATH"
)

// DefaultRedirectURI is used when REDIRECT_URI is not set. It must match a
// redirect URI registered on the Entra ID app; nothing listens on it.
const DefaultRedirectURI = "http://localhost"

// TemplateKeys are the keys written to a fresh template file.
var TemplateKeys = []string{
	KeyClientID,
	KeyAuthorityURL,
	KeyDriveID,
	KeyItemPath,
	KeyFilename,
	KeyMFASecret,
	KeyUsername,
	KeyPassword,
}

// knownKeys are the keys that may be overridden from the process environment.
var knownKeys = append(append([]string{}, TemplateKeys...), KeyRedirectURI, KeyFolderPath)

// Mode selects which keys a run needs.
type Mode int

const (
	// ModeTransfer is an upload or download: every key is required.
	ModeTransfer Mode = iota
	// ModeDriveID only authenticates and lists candidate drive IDs, so the
	// drive, folder and file keys are not checked.
	ModeDriveID
)

func (m Mode) String() string {
	if m == ModeDriveID {
		return "driveid"
	}

	return "transfer"
}

// Settings is the credentials record. Source is the file it was read from
// (empty for records built in memory).
type Settings struct {
	Source string
	values map[string]string
}

// NewSettings wraps an in-memory key-value map. The map is copied.
func NewSettings(values map[string]string) *Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	return &Settings{values: copied}
}

// Lookup returns the raw value for key and whether the key is present at all.
// M365_ITEM_PATH falls back to M365_FOLDER_PATH.
func (s *Settings) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	if key == KeyItemPath && strings.TrimSpace(v) == "" {
		if alt, altOK := s.values[KeyFolderPath]; altOK && strings.TrimSpace(alt) != "" {
			return alt, true
		}
	}

	return v, ok
}

// Get returns the value for key, or "" if it is absent.
func (s *Settings) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

func (s *Settings) ClientID() string     { return s.Get(KeyClientID) }
func (s *Settings) AuthorityURL() string { return s.Get(KeyAuthorityURL) }
func (s *Settings) DriveID() string      { return s.Get(KeyDriveID) }
func (s *Settings) Filename() string     { return s.Get(KeyFilename) }
func (s *Settings) MFASecret() string    { return s.Get(KeyMFASecret) }
func (s *Settings) Username() string     { return s.Get(KeyUsername) }
func (s *Settings) Password() string     { return s.Get(KeyPassword) }

// ItemPath returns the remote folder path with surrounding slashes removed,
// ready to be joined with the file name.
func (s *Settings) ItemPath() string {
	return strings.Trim(s.Get(KeyItemPath), "/")
}

// RemotePath is the drive-relative path of the transferred file.
func (s *Settings) RemotePath() string {
	if folder := s.ItemPath(); folder != "" {
		return folder + "/" + s.Filename()
	}

	return s.Filename()
}

// RedirectURI returns the configured redirect URI or DefaultRedirectURI.
func (s *Settings) RedirectURI() string {
	if v := strings.TrimSpace(s.Get(KeyRedirectURI)); v != "" {
		return v
	}

	return DefaultRedirectURI
}
