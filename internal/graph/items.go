package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// encodePathSegments NFC-normalizes and URL-encodes each segment of a
// slash-separated path. SharePoint stores names in NFC, so a decomposed
// name typed on macOS would otherwise not resolve.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(norm.NFC.String(seg))
	}

	return strings.Join(segments, "/")
}

// itemPath builds the path-addressed item URL. An empty remote path is the
// drive root.
func itemPath(driveID, remotePath string) string {
	remotePath = strings.Trim(remotePath, "/")
	if remotePath == "" {
		return fmt.Sprintf("/drives/%s/root", driveID)
	}

	return fmt.Sprintf("/drives/%s/root:/%s:", driveID, encodePathSegments(remotePath))
}

// driveItemResponse mirrors the subset of the Graph driveItem JSON we use.
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	ETag                 string       `json:"eTag"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	ParentReference      *parentRef   `json:"parentReference"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
	Path    string `json:"path"`
}

type fileFacet struct {
	MimeType string       `json:"mimeType"`
	Hashes   *hashesFacet `json:"hashes"`
}

type hashesFacet struct {
	QuickXorHash string `json:"quickXorHash"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
// Drive ids are kept as returned: SharePoint "b!" ids are case-sensitive.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		ETag:        d.ETag,
		IsFolder:    d.Folder != nil,
		DownloadURL: d.DownloadURL,
	}

	if d.ParentReference != nil {
		item.DriveID = d.ParentReference.DriveID
		item.ParentID = d.ParentReference.ID
		item.ParentPath = d.ParentReference.Path
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType

		if d.File.Hashes != nil {
			item.QuickXorHash = d.File.Hashes.QuickXorHash
		}
	}

	if d.LastModifiedDateTime != "" {
		t, err := time.Parse(time.RFC3339, d.LastModifiedDateTime)
		if err != nil {
			logger.Debug("ignoring unparseable lastModifiedDateTime",
				slog.String("item_id", d.ID),
				slog.String("raw", d.LastModifiedDateTime),
			)
		} else {
			item.ModifiedAt = t
		}
	}

	return item
}

func decodeItem(body io.Reader, what string, logger *slog.Logger) (*Item, error) {
	var dir driveItemResponse
	if err := json.NewDecoder(body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding %s response: %w", what, err)
	}

	item := dir.toItem(logger)

	return &item, nil
}

// GetItemByPath retrieves a drive item by its path relative to the drive
// root. Leading and trailing slashes are ignored; an empty path is the root.
func (c *Client) GetItemByPath(ctx context.Context, driveID, remotePath string) (*Item, error) {
	c.logger.Info("getting item by path",
		slog.String("drive_id", driveID),
		slog.String("path", remotePath),
	)

	resp, err := c.Do(ctx, http.MethodGet, itemPath(driveID, remotePath), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeItem(resp.Body, "item", c.logger)
}

// GetItemStatus probes an item by path and returns the HTTP status of the
// metadata request. HTTP error statuses are returned as a status with a nil
// error; only transport failures are errors.
func (c *Client) GetItemStatus(ctx context.Context, driveID, remotePath string) (int, error) {
	resp, err := c.Do(ctx, http.MethodGet, itemPath(driveID, remotePath), nil)
	if err != nil {
		if code := StatusCode(err); code != 0 {
			c.logger.Debug("item status probe",
				slog.String("path", remotePath),
				slog.Int("status", code),
			)

			return code, nil
		}

		return 0, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Debug("draining status probe body failed", slog.String("error", err.Error()))
	}

	return resp.StatusCode, nil
}
