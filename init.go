package main

import (
	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a blank credentials file",
		Long: `Write a blank msal_config.env (or the --config path) listing every
key spdrive reads. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	if err := config.WriteTemplate(credentialsPath); err != nil {
		return err
	}

	newConsole(cmd.ErrOrStderr(), flagQuiet).Successf("Template written to %s\n", credentialsPath)

	return nil
}
