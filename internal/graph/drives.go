package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Recent returns the raw JSON of the signed-in user's recently used items.
func (c *Client) Recent(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "/drive/microsoft.graph.recent()")
}

// SharedWithMe returns the raw JSON of items shared with the signed-in user.
func (c *Client) SharedWithMe(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "/me/drive/sharedWithMe")
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s response: %w", path, err)
	}

	return body, nil
}
