package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/config"
)

// stdinIsTerminal reports whether questions can be asked. Tests replace it.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirm asks a yes/no question. Only "y" or "yes" (any case) confirms.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprint(out, question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// loadCredentials loads the credentials file. When it is missing and stdin
// is a terminal, the user is offered a blank template; in that case it
// returns (nil, nil) and the command stops successfully.
func loadCredentials(cmd *cobra.Command, con *console) (*config.Settings, error) {
	settings, err := config.Load(credentialsPath)
	if err == nil {
		return settings, nil
	}

	if !errors.Is(err, config.ErrConfigNotFound) {
		return nil, err
	}

	con.Errorf("Configuration file not found: %s\n", credentialsPath)

	notFound := fmt.Errorf("%w: %s (run \"spdrive init\" to create a template)", config.ErrConfigNotFound, credentialsPath)

	if !stdinIsTerminal() {
		return nil, notFound
	}

	ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Create a blank template (yes/no)? ")
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound
	}

	if err := config.WriteTemplate(credentialsPath); err != nil {
		return nil, err
	}

	con.Successf("Template written to %s. Fill in the values and run again.\n", credentialsPath)

	return nil, nil
}
