// Package totp derives the six-digit time-based one-time passwords (RFC 6238,
// HMAC-SHA1, 30 second step) used for the authenticator-app sign-in method.
package totp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Period is the length of one code window.
const Period = 30 * time.Second

// ErrInvalidSecret means the shared secret is not valid base32. It is a
// configuration error: MFA_SECRET needs fixing.
var ErrInvalidSecret = errors.New("totp: invalid shared secret")

var opts = totp.ValidateOpts{
	Period:    uint(Period / time.Second),
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Code returns the code for secret at time t. Authenticator apps display
// secrets in groups, so embedded spaces and lower case are accepted.
func Code(secret string, t time.Time) (string, error) {
	normalized := normalize(secret)
	if normalized == "" {
		return "", fmt.Errorf("%w: secret is empty", ErrInvalidSecret)
	}

	code, err := totp.GenerateCodeCustom(normalized, t, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}

	return code, nil
}

// CheckSecret reports whether secret decodes as base32, without deriving a
// code. It accepts the same spacing and case as Code.
func CheckSecret(secret string) error {
	normalized := normalize(secret)
	if normalized == "" {
		return fmt.Errorf("%w: secret is empty", ErrInvalidSecret)
	}

	if n := len(normalized) % 8; n != 0 {
		normalized += strings.Repeat("=", 8-n)
	}

	if _, err := base32.StdEncoding.DecodeString(normalized); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}

	return nil
}

// Remaining returns how long the code for t stays valid.
func Remaining(t time.Time) time.Duration {
	elapsed := time.Duration(t.UnixNano()) % Period
	return Period - elapsed
}

func normalize(secret string) string {
	return strings.ToUpper(strings.Join(strings.Fields(secret), ""))
}
