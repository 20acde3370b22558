package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/graph"
	"github.com/spdrive/spdrive/internal/transfer"
)

type direction int

const (
	directionDownload direction = iota
	directionUpload
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download M365_FILENAME from M365_ITEM_PATH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, directionDownload)
		},
	}

	addTransferFlags(cmd, "directory the file is written to")

	return cmd
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload M365_FILENAME to M365_ITEM_PATH, replacing any existing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, directionUpload)
		},
	}

	addTransferFlags(cmd, "directory the file is read from")

	return cmd
}

func addTransferFlags(cmd *cobra.Command, dirUsage string) {
	cmd.Flags().String("dir", ".", dirUsage)
	cmd.Flags().Bool("manual", false, "sign in with your own browser and paste the redirect URL instead of automating it")
}

// session is what a command has after configuration passed validation.
type session struct {
	ctx      context.Context
	stop     func()
	logger   *slog.Logger
	con      *console
	settings *config.Settings
}

// configError carries every validation failure of one credentials file.
type configError struct {
	path string
	err  error
}

func (e *configError) Error() string {
	return fmt.Sprintf("invalid configuration in %s:\n%v", e.path, e.err)
}

func (e *configError) Unwrap() error { return e.err }

// prepare loads and validates the credentials for mode. A nil session with
// a nil error means the command should stop successfully (a template was
// just written).
func prepare(cmd *cobra.Command, mode config.Mode) (*session, error) {
	logger := buildLogger()
	con := newConsole(cmd.ErrOrStderr(), flagQuiet)

	settings, err := loadCredentials(cmd, con)
	if err != nil || settings == nil {
		return nil, err
	}

	if err := settings.Validate(mode, !flagNoMFA); err != nil {
		return nil, &configError{path: settings.Source, err: err}
	}

	logger.Debug("configuration valid",
		slog.String("path", settings.Source),
		slog.String("mode", mode.String()),
		slog.Bool("mfa", !flagNoMFA),
	)

	ctx, stop := watchInterrupts(cmd.Context(), logger)

	return &session{
		ctx:      ctx,
		stop:     stop,
		logger:   logger,
		con:      con,
		settings: settings,
	}, nil
}

func (s *session) graphClient(cmd *cobra.Command, manual bool) (*graph.Client, error) {
	s.con.Infof("Signing in as %s\n", s.settings.Username())

	return newGraphClient(s.ctx, signInRequest{
		settings:   s.settings,
		tuning:     tuning,
		httpClient: newHTTPClient(tuning.Timings().HTTPTimeout),
		useMFA:     !flagNoMFA,
		gui:        flagGUI,
		manual:     manual,
		in:         cmd.InOrStdin(),
		out:        cmd.ErrOrStderr(),
	}, s.logger)
}

func runTransfer(cmd *cobra.Command, dir direction) error {
	if flagDriveID {
		return runDriveIDDiscovery(cmd)
	}

	s, err := prepare(cmd, config.ModeTransfer)
	if err != nil || s == nil {
		return err
	}
	defer s.stop()

	manual, err := cmd.Flags().GetBool("manual")
	if err != nil {
		return err
	}

	localDir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	client, err := s.graphClient(cmd, manual)
	if err != nil {
		return interruptCause(s.ctx, err)
	}

	mgr := transfer.NewManager(client, transfer.NewLimiter(tuning.BandwidthBytes()), s.logger)
	driveID := s.settings.DriveID()
	folder := s.settings.ItemPath()
	name := s.settings.Filename()

	var res *transfer.Result

	switch dir {
	case directionDownload:
		s.con.Infof("Downloading %s\n", s.settings.RemotePath())
		res, err = mgr.Download(s.ctx, driveID, folder, name, localDir)
	case directionUpload:
		local := filepath.Join(localDir, name)
		s.con.Infof("Uploading %s to %s\n", local, s.settings.RemotePath())
		res, err = mgr.Upload(s.ctx, driveID, folder, name, local)
	}

	if errors.Is(err, transfer.ErrNotVerified) {
		s.con.Errorf("Transfer finished but %s could not be found afterwards\n", res.Path)
	}

	if err != nil {
		return interruptCause(s.ctx, err)
	}

	s.con.Successf("Done: %s (%s, %s", res.Path, formatSize(res.Size), res.Method)

	if res.Chunks > 0 {
		s.con.Successf(", %d chunks", res.Chunks)
	}

	s.con.Successf(")\n")

	if !res.HashVerified {
		s.con.Infof("The server did not confirm the content hash (QuickXorHash %s)\n", res.Hash)
	}

	return nil
}
