package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/totp"
)

// now is the clock for mfa-code. Tests replace it.
var now = time.Now

func newMFACodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mfa-code",
		Short: "Print the current one-time code for MFA_SECRET",
		Long: `Print the current six-digit one-time code generated from MFA_SECRET,
and how long it stays valid. Useful for checking the secret against an
authenticator app.`,
		Args: cobra.NoArgs,
		RunE: runMFACode,
	}
}

func runMFACode(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(credentialsPath)
	if err != nil {
		return err
	}

	secret := settings.MFASecret()
	if secret == "" {
		return fmt.Errorf("%s is not set in %s", config.KeyMFASecret, settings.Source)
	}

	t := now()

	code, err := totp.Code(secret, t)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), code)
	newConsole(cmd.ErrOrStderr(), flagQuiet).Infof("valid for %ds\n", int(totp.Remaining(t).Seconds()))

	return nil
}
