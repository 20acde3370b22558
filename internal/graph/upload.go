package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const octetStream = "application/octet-stream"

type createUploadSessionRequest struct {
	Item uploadSessionItem `json:"item"`
}

type uploadSessionItem struct {
	ConflictBehavior string `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type uploadSessionResponse struct {
	UploadURL          string `json:"uploadUrl"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

// SimpleUpload creates (or overwrites) parentID/name with a single PUT.
// Graph accepts this for content up to 4 MiB.
func (c *Client) SimpleUpload(
	ctx context.Context, driveID, parentID, name string, r io.Reader, size int64,
) (*Item, error) {
	c.logger.Info("simple upload",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.Int64("size", size),
	)

	path := fmt.Sprintf("/drives/%s/items/%s:/%s:/content", driveID, parentID, encodePathSegments(name))

	return c.putContent(ctx, path, r, size, "simple upload")
}

// ReplaceContent overwrites the content of an existing item with a single PUT.
func (c *Client) ReplaceContent(
	ctx context.Context, driveID, itemID string, r io.Reader, size int64,
) (*Item, error) {
	c.logger.Info("replacing item content",
		slog.String("drive_id", driveID),
		slog.String("item_id", itemID),
		slog.Int64("size", size),
	)

	path := fmt.Sprintf("/drives/%s/items/%s/content", driveID, url.PathEscape(itemID))

	return c.putContent(ctx, path, r, size, "replace content")
}

func (c *Client) putContent(ctx context.Context, path string, r io.Reader, size int64, what string) (*Item, error) {
	resp, err := c.send(ctx, request{
		method:        http.MethodPut,
		url:           c.baseURL + path,
		contentType:   octetStream,
		body:          r,
		contentLength: size,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeItem(resp.Body, what, c.logger)
}

// CreateUploadSession creates an upload session for parentID/name that
// replaces any existing item. The returned session URL is pre-authenticated.
func (c *Client) CreateUploadSession(
	ctx context.Context, driveID, parentID, name string,
) (*UploadSession, error) {
	c.logger.Info("creating upload session",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
		slog.String("name", name),
	)

	path := fmt.Sprintf("/drives/%s/items/%s:/%s:/createUploadSession", driveID, parentID, encodePathSegments(name))

	bodyBytes, err := json.Marshal(createUploadSessionRequest{
		Item: uploadSessionItem{ConflictBehavior: "replace"},
	})
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling upload session request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var usr uploadSessionResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&usr); decErr != nil {
		return nil, fmt.Errorf("graph: decoding upload session response: %w", decErr)
	}

	if usr.UploadURL == "" {
		return nil, fmt.Errorf("graph: upload session response has no uploadUrl")
	}

	expTime, parseErr := time.Parse(time.RFC3339, usr.ExpirationDateTime)
	if parseErr != nil {
		c.logger.Warn("invalid upload session expiration, using zero time",
			slog.String("raw", usr.ExpirationDateTime),
		)
	}

	c.logger.Debug("upload session created", slog.Time("expires", expTime))

	return &UploadSession{UploadURL: usr.UploadURL, ExpirationTime: expTime}, nil
}

// UploadChunk sends bytes [offset, offset+length) of a total-byte file to
// the session. It returns the completed Item on the final chunk (200/201)
// and nil for intermediate chunks (202). Any other status is an error.
func (c *Client) UploadChunk(
	ctx context.Context, session *UploadSession, chunk io.Reader,
	offset, length, total int64,
) (*Item, error) {
	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total)

	c.logger.Debug("uploading chunk", slog.String("content_range", contentRange))

	resp, err := c.send(ctx, request{
		method:        http.MethodPut,
		url:           session.UploadURL,
		contentType:   octetStream,
		body:          chunk,
		contentLength: length,
		headers:       map[string]string{"Content-Range": contentRange},
		anonymous:     true,
	})
	if err != nil {
		c.logger.Error("chunk upload failed",
			slog.String("content_range", contentRange),
			slog.String("error", err.Error()),
		)

		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return nil, fmt.Errorf("graph: draining chunk response body: %w", drainErr)
		}

		return nil, nil
	}

	return decodeItem(resp.Body, "final chunk", c.logger)
}
