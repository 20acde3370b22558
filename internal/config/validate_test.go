package config

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_FullyValid(t *testing.T) {
	s := NewSettings(validValues())

	assert.NoError(t, s.Validate(ModeTransfer, true))
	assert.NoError(t, s.Validate(ModeDriveID, true))
	assert.NoError(t, s.Validate(ModeTransfer, false))
}

func TestValidate_EachKeyMissingOrEmpty(t *testing.T) {
	for _, key := range TemplateKeys {
		t.Run(key+"/missing", func(t *testing.T) {
			values := validValues()
			delete(values, key)

			fes := FieldErrors(NewSettings(values).Validate(ModeTransfer, true))
			require.Len(t, fes, 1)
			assert.Equal(t, key, fes[0].Key)
			assert.Equal(t, ProblemMissing, fes[0].Problem)
		})

		t.Run(key+"/empty", func(t *testing.T) {
			values := validValues()
			values[key] = ""

			fes := FieldErrors(NewSettings(values).Validate(ModeTransfer, true))
			require.Len(t, fes, 1)
			assert.Equal(t, key, fes[0].Key)
			assert.Equal(t, ProblemEmpty, fes[0].Problem)
		})
	}
}

func TestValidate_Lengths(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{KeyClientID, 36},
		{KeyAuthorityURL, 70},
		{KeyDriveID, 66},
	}

	for _, tt := range tests {
		for _, n := range []int{1, tt.want - 1, tt.want + 1} {
			values := validValues()
			values[tt.key] = strings.Repeat("a", n)

			fes := FieldErrors(NewSettings(values).Validate(ModeTransfer, true))
			require.Len(t, fes, 1, "%s with length %d", tt.key, n)
			assert.Equal(t, ProblemLength, fes[0].Problem)
			assert.Equal(t, n, fes[0].Got)
			assert.Equal(t, tt.want, fes[0].Want)
		}

		values := validValues()
		values[tt.key] = strings.Repeat("a", tt.want)
		assert.NoError(t, NewSettings(values).Validate(ModeTransfer, true))
	}
}

func TestValidate_LengthCountsCharacters(t *testing.T) {
	values := validValues()
	values[KeyClientID] = strings.Repeat("é", 36)

	assert.NoError(t, NewSettings(values).Validate(ModeTransfer, true))
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	fes := FieldErrors(NewSettings(nil).Validate(ModeTransfer, true))
	require.Len(t, fes, len(TemplateKeys))

	for i, key := range []string{
		KeyClientID, KeyAuthorityURL, KeyDriveID, KeyItemPath,
		KeyMFASecret, KeyUsername, KeyPassword, KeyFilename,
	} {
		assert.Equal(t, key, fes[i].Key)
	}
}

func TestValidate_NoMFASkipsSecret(t *testing.T) {
	values := validValues()
	delete(values, KeyMFASecret)

	assert.NoError(t, NewSettings(values).Validate(ModeTransfer, false))
	assert.Error(t, NewSettings(values).Validate(ModeTransfer, true))
}

func TestValidate_SecretMustBeBase32(t *testing.T) {
	values := validValues()
	values[KeyMFASecret] = "not-base32-!!!1890"
	values[KeyPassword] = ""

	fes := FieldErrors(NewSettings(values).Validate(ModeTransfer, true))
	require.Len(t, fes, 2)
	assert.Equal(t, KeyMFASecret, fes[0].Key)
	assert.Equal(t, ProblemBase32, fes[0].Problem)
	assert.Equal(t, "MFA_SECRET: invalid base32", fes[0].Error())
	assert.Equal(t, KeyPassword, fes[1].Key)

	// Without MFA the secret is never read.
	values[KeyPassword] = "hunter2"
	assert.NoError(t, NewSettings(values).Validate(ModeTransfer, false))
}

func TestValidate_SecretSpacingAccepted(t *testing.T) {
	values := validValues()
	values[KeyMFASecret] = "jbsw y3dp ehpk 3pxp"

	assert.NoError(t, NewSettings(values).Validate(ModeTransfer, true))
}

func TestValidate_DriveIDModeSkipsTransferKeys(t *testing.T) {
	values := validValues()
	delete(values, KeyDriveID)
	delete(values, KeyItemPath)
	delete(values, KeyFilename)

	assert.NoError(t, NewSettings(values).Validate(ModeDriveID, true))

	fes := FieldErrors(NewSettings(values).Validate(ModeTransfer, true))
	assert.Len(t, fes, 3)
}

func TestValidate_DriveIDModeStillChecksCredentials(t *testing.T) {
	values := validValues()
	values[KeyPassword] = ""
	values[KeyClientID] = "short"

	fes := FieldErrors(NewSettings(values).Validate(ModeDriveID, true))
	require.Len(t, fes, 2)
	assert.Equal(t, KeyClientID, fes[0].Key)
	assert.Equal(t, KeyPassword, fes[1].Key)
}

func TestValidate_ItemPathFromAlias(t *testing.T) {
	values := validValues()
	delete(values, KeyItemPath)
	values[KeyFolderPath] = "Documents"

	assert.NoError(t, NewSettings(values).Validate(ModeTransfer, true))
}

func TestFieldError_Messages(t *testing.T) {
	assert.Equal(t, "CLIENT_ID: improper length 3 (want 36)",
		(&FieldError{Key: KeyClientID, Problem: ProblemLength, Got: 3, Want: 36}).Error())
	assert.Equal(t, "M365_USERNAME: missing from config file",
		(&FieldError{Key: KeyUsername, Problem: ProblemMissing}).Error())
	assert.Equal(t, "M365_PASSWORD: empty",
		(&FieldError{Key: KeyPassword, Problem: ProblemEmpty}).Error())
}

func TestFieldErrors_Nil(t *testing.T) {
	assert.Nil(t, FieldErrors(nil))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "transfer", ModeTransfer.String())
	assert.Equal(t, "driveid", ModeDriveID.String())
}

func TestFieldErrors_Wrapped(t *testing.T) {
	values := validValues()
	values[KeyClientID] = "short"
	delete(values, KeyFilename)

	err := fmt.Errorf("invalid configuration in %s:\n%w", "msal_config.env", NewSettings(values).Validate(ModeTransfer, true))

	fes := FieldErrors(err)
	require.Len(t, fes, 2)
	assert.Equal(t, KeyClientID, fes[0].Key)
	assert.Equal(t, KeyFilename, fes[1].Key)
	assert.Equal(t, ProblemMissing, fes[1].Problem)
}
