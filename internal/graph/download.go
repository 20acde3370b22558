package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DownloadFromURL streams content from a pre-authenticated download URL to
// w and returns the number of bytes written. No Authorization header is
// sent, and the URL is never logged because it embeds a credential.
func (c *Client) DownloadFromURL(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, request{
		method:    http.MethodGet,
		url:       downloadURL,
		body:      http.NoBody,
		anonymous: true,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	c.logger.Debug("download complete", slog.Int64("bytes_written", n))

	return n, nil
}
