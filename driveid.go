package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/spdrive/spdrive/internal/config"
)

// driveIDPaths locate drive ids in the recent and sharedWithMe listings.
var driveIDPaths = []string{
	"value.#.remoteItem.parentReference.driveId",
	"value.#.parentReference.driveId",
}

// driveLister is the subset of *graph.Client used for discovery.
type driveLister interface {
	Recent(ctx context.Context) ([]byte, error)
	SharedWithMe(ctx context.Context) ([]byte, error)
}

func runDriveIDDiscovery(cmd *cobra.Command) error {
	s, err := prepare(cmd, config.ModeDriveID)
	if err != nil || s == nil {
		return err
	}
	defer s.stop()

	client, err := s.graphClient(cmd, false)
	if err != nil {
		return interruptCause(s.ctx, err)
	}

	discoverDriveIDs(s.ctx, client, cmd.OutOrStdout(), s.con)

	return nil
}

// discoverDriveIDs prints both listings and any drive ids found in them.
// It is best effort: a failed request is reported and skipped.
func discoverDriveIDs(ctx context.Context, g driveLister, out io.Writer, con *console) []string {
	calls := []struct {
		name string
		fetch func(context.Context) ([]byte, error)
	}{
		{"recent", g.Recent},
		{"sharedWithMe", g.SharedWithMe},
	}

	var ids []string

	for _, c := range calls {
		body, err := c.fetch(ctx)
		if err != nil {
			con.Errorf("%s request failed: %v\n", c.name, err)
			continue
		}

		fmt.Fprintf(out, "%s:\n", c.name)

		if con.color {
			out.Write(pretty.Color(pretty.Pretty(body), nil)) //nolint:errcheck // console output
		} else {
			out.Write(pretty.Pretty(body)) //nolint:errcheck // console output
		}

		ids = appendUnique(ids, extractDriveIDs(body)...)
	}

	if len(ids) == 0 {
		con.Infof("No drive ids found. Open the target library in a browser once so it shows up under recent items.\n")
		return nil
	}

	fmt.Fprintln(out, "Drive ids found:")

	for _, id := range ids {
		note := ""
		if len(id) != config.DriveIDLength {
			note = fmt.Sprintf("  (length %d, M365_DRIVE_ID must be %d)", len(id), config.DriveIDLength)
		}

		fmt.Fprintf(out, "  %s%s\n", id, note)
	}

	return ids
}

func extractDriveIDs(body []byte) []string {
	if !gjson.ValidBytes(body) {
		return nil
	}

	var ids []string

	for _, p := range driveIDPaths {
		gjson.GetBytes(body, p).ForEach(func(_, v gjson.Result) bool {
			if id := v.String(); id != "" {
				ids = appendUnique(ids, id)
			}

			return true
		})
	}

	return ids
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		seen := false

		for _, existing := range list {
			if existing == item {
				seen = true
				break
			}
		}

		if !seen {
			list = append(list, item)
		}
	}

	return list
}
