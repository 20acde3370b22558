package config

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spdrive/spdrive/internal/totp"
)

// Expected value lengths for the identifier-shaped keys. A client ID is a
// GUID, the authority URL is https://login.microsoftonline.com/<tenant GUID>
// and a SharePoint drive ID is "b!" followed by 64 base64url characters.
const (
	ClientIDLength     = 36
	AuthorityURLLength = 70
	DriveIDLength      = 66
)

// Problem classifies why a key failed validation.
type Problem string

// Validation problems.
const (
	ProblemMissing Problem = "missing"
	ProblemEmpty   Problem = "empty"
	ProblemLength  Problem = "improper length"
	ProblemBase32  Problem = "invalid base32"
)

// FieldError reports one failing key. Got and Want are only meaningful for
// ProblemLength.
type FieldError struct {
	Key     string
	Problem Problem
	Got     int
	Want    int
}

func (e *FieldError) Error() string {
	switch e.Problem {
	case ProblemLength:
		return fmt.Sprintf("%s: improper length %d (want %d)", e.Key, e.Got, e.Want)
	case ProblemMissing:
		return fmt.Sprintf("%s: missing from config file", e.Key)
	default:
		return fmt.Sprintf("%s: %s", e.Key, e.Problem)
	}
}

// rule describes the checks applied to one key.
type rule struct {
	key          string
	length       int  // 0 = any non-empty value
	transferOnly bool // skipped in ModeDriveID
	mfaOnly      bool // skipped when MFA is disabled
	base32       bool
}

// rules are evaluated in this order so the report reads like the config file.
var rules = []rule{
	{key: KeyClientID, length: ClientIDLength},
	{key: KeyAuthorityURL, length: AuthorityURLLength},
	{key: KeyDriveID, length: DriveIDLength, transferOnly: true},
	{key: KeyItemPath, transferOnly: true},
	{key: KeyMFASecret, mfaOnly: true, base32: true},
	{key: KeyUsername},
	{key: KeyPassword},
	{key: KeyFilename, transferOnly: true},
}

// Validate checks every key needed for mode and returns all failures joined
// together, one *FieldError per failing key. A nil return means the record is
// complete and may be handed to the login step.
func (s *Settings) Validate(mode Mode, useMFA bool) error {
	var errs []error

	for _, r := range rules {
		if r.transferOnly && mode == ModeDriveID {
			continue
		}

		if r.mfaOnly && !useMFA {
			continue
		}

		if fe := s.check(r); fe != nil {
			errs = append(errs, fe)
		}
	}

	return errors.Join(errs...)
}

func (s *Settings) check(r rule) *FieldError {
	v, ok := s.Lookup(r.key)
	if !ok {
		return &FieldError{Key: r.key, Problem: ProblemMissing}
	}

	n := utf8.RuneCountInString(v)
	if n == 0 {
		if r.length > 0 {
			return &FieldError{Key: r.key, Problem: ProblemEmpty, Got: 0, Want: r.length}
		}

		return &FieldError{Key: r.key, Problem: ProblemEmpty}
	}

	if r.length > 0 && n != r.length {
		return &FieldError{Key: r.key, Problem: ProblemLength, Got: n, Want: r.length}
	}

	if r.base32 && totp.CheckSecret(v) != nil {
		return &FieldError{Key: r.key, Problem: ProblemBase32}
	}

	return nil
}

// FieldErrors flattens an error returned by Validate into its field errors.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}

	var out []*FieldError

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}

		return out
	}

	if fe, ok := err.(*FieldError); ok { //nolint:errorlint // joined errors are walked above
		return []*FieldError{fe}
	}

	return FieldErrors(errors.Unwrap(err))
}
