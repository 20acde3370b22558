// Package transfer moves one file between the local disk and a drive:
// download through the item's pre-authenticated URL, and upload by single
// PUT or chunked upload session, each followed by a presence check.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/spdrive/spdrive/internal/graph"
	"github.com/spdrive/spdrive/pkg/quickxorhash"
)

// Transfer methods reported in Result.
const (
	MethodDownload      = "download"
	MethodSimpleCreate  = "simple-create"
	MethodSimpleReplace = "simple-replace"
	MethodSession       = "session"
)

var (
	// ErrNoDownloadURL is returned when the item metadata carries no
	// pre-authenticated download URL.
	ErrNoDownloadURL = errors.New("transfer: item has no download URL")
	// ErrIsFolder is returned when the remote path names a folder.
	ErrIsFolder = errors.New("transfer: remote path is a folder")
	// ErrNotVerified is returned together with the Result when the transfer
	// completed but the post-transfer presence check failed.
	ErrNotVerified = errors.New("transfer: post-transfer check failed")
)

// Graph is the subset of *graph.Client the manager uses.
type Graph interface {
	GetItemByPath(ctx context.Context, driveID, remotePath string) (*graph.Item, error)
	GetItemStatus(ctx context.Context, driveID, remotePath string) (int, error)
	DownloadFromURL(ctx context.Context, downloadURL string, w io.Writer) (int64, error)
	SimpleUpload(ctx context.Context, driveID, parentID, name string, r io.Reader, size int64) (*graph.Item, error)
	ReplaceContent(ctx context.Context, driveID, itemID string, r io.Reader, size int64) (*graph.Item, error)
	CreateUploadSession(ctx context.Context, driveID, parentID, name string) (*graph.UploadSession, error)
	UploadChunk(
		ctx context.Context, session *graph.UploadSession, chunk io.Reader,
		offset, length, total int64,
	) (*graph.Item, error)
}

// Result describes a finished transfer.
type Result struct {
	Path     string // local path for downloads, remote path for uploads
	Size     int64
	Method   string
	Chunks   int
	Verified bool

	// Hash is the QuickXorHash of the local content. HashVerified reports
	// whether the server's hash for the item matched it.
	Hash         string
	HashVerified bool
}

// Manager performs downloads and uploads against one Graph client.
type Manager struct {
	graph   Graph
	limiter *Limiter
	logger  *slog.Logger
}

// NewManager creates a Manager. limiter may be nil for unlimited bandwidth.
func NewManager(g Graph, limiter *Limiter, logger *slog.Logger) *Manager {
	return &Manager{graph: g, limiter: limiter, logger: logger}
}

// RemotePath joins a drive folder path and a file name.
func RemotePath(folder, name string) string {
	return path.Join(folder, name)
}

// Download fetches folder/name from the drive into localDir. The content is
// written to a .partial file and renamed into place once complete. When the
// item carries a QuickXorHash, a mismatching download is fetched again, up
// to maxDownloadAttempts times.
func (m *Manager) Download(ctx context.Context, driveID, folder, name, localDir string) (*Result, error) {
	remote := RemotePath(folder, name)

	item, err := m.graph.GetItemByPath(ctx, driveID, remote)
	if err != nil {
		return nil, fmt.Errorf("transfer: looking up %s: %w", remote, err)
	}

	if item.IsFolder {
		return nil, fmt.Errorf("%w: %s", ErrIsFolder, remote)
	}

	if item.DownloadURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDownloadURL, remote)
	}

	target := filepath.Join(localDir, filepath.Base(filepath.FromSlash(name)))
	partial := target + ".partial"

	m.logger.Info("downloading",
		slog.String("remote", remote),
		slog.String("target", target),
		slog.Int64("size", item.Size),
	)

	var (
		n         int64
		localHash string
	)

	for attempt := 1; attempt <= maxDownloadAttempts; attempt++ {
		n, localHash, err = m.downloadToPartial(ctx, item.DownloadURL, partial)
		if err != nil {
			return nil, fmt.Errorf("transfer: downloading %s: %w", remote, err)
		}

		if item.QuickXorHash == "" || localHash == item.QuickXorHash {
			break
		}

		m.logger.Warn("download hash mismatch",
			slog.String("remote", remote),
			slog.Int("attempt", attempt),
			slog.String("local_hash", localHash),
			slog.String("remote_hash", item.QuickXorHash),
		)
	}

	if err := os.Rename(partial, target); err != nil {
		os.Remove(partial)
		return nil, fmt.Errorf("transfer: renaming %s into place: %w", target, err)
	}

	if n != item.Size {
		m.logger.Warn("download size differs from item metadata",
			slog.String("target", target),
			slog.Int64("written", n),
			slog.Int64("expected", item.Size),
		)
	}

	result := &Result{
		Path:         target,
		Size:         n,
		Method:       MethodDownload,
		Hash:         localHash,
		HashVerified: item.QuickXorHash != "" && localHash == item.QuickXorHash,
	}

	if _, err := os.Stat(target); err != nil {
		m.logger.Error("downloaded file missing after transfer",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)

		return result, fmt.Errorf("%w: %s: %w", ErrNotVerified, target, err)
	}

	result.Verified = true

	return result, nil
}

// downloadToPartial streams url into partial, hashing as it writes. The
// partial file is removed on failure.
func (m *Manager) downloadToPartial(ctx context.Context, url, partial string) (int64, string, error) {
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:mnd // regular file perms
	if err != nil {
		return 0, "", fmt.Errorf("creating %s: %w", partial, err)
	}

	h := quickxorhash.New()

	n, err := m.graph.DownloadFromURL(ctx, url, m.limiter.Writer(ctx, io.MultiWriter(f, h)))
	if err != nil {
		f.Close()
		os.Remove(partial)

		return 0, "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(partial)
		return 0, "", fmt.Errorf("closing %s: %w", partial, err)
	}

	return n, encodeHash(h), nil
}

// Upload sends localPath to folder/name on the drive, replacing the item if
// it exists. Files up to SimpleUploadMaxSize go in one PUT; larger files go
// through an upload session in ChunkSize pieces. A failed chunk aborts the
// upload.
func (m *Manager) Upload(ctx context.Context, driveID, folder, name, localPath string) (*Result, error) {
	remote := RemotePath(folder, name)

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("transfer: %s is a directory", localPath)
	}

	existing, err := m.graph.GetItemByPath(ctx, driveID, remote)

	switch {
	case err == nil:
		if existing.IsFolder {
			return nil, fmt.Errorf("%w: %s", ErrIsFolder, remote)
		}

		m.logger.Info("remote file exists, replacing", slog.String("remote", remote), slog.String("item_id", existing.ID))
	case errors.Is(err, graph.ErrNotFound):
		existing = nil

		m.logger.Info("remote file does not exist, creating", slog.String("remote", remote))
	default:
		return nil, fmt.Errorf("transfer: looking up %s: %w", remote, err)
	}

	parent, err := m.graph.GetItemByPath(ctx, driveID, folder)
	if err != nil {
		return nil, fmt.Errorf("transfer: looking up folder %q: %w", folder, err)
	}

	var (
		result   *Result
		uploaded *graph.Item
	)

	if UsesSession(info.Size()) {
		result, uploaded, err = m.sessionUpload(ctx, driveID, parent.ID, name, localPath)
	} else {
		result, uploaded, err = m.simpleUpload(ctx, driveID, parent.ID, name, localPath, existing)
	}

	if err != nil {
		return nil, err
	}

	result.Path = remote
	m.compareUploadHash(result, uploaded)

	status, err := m.graph.GetItemStatus(ctx, driveID, remote)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrNotVerified, remote, err)
	}

	if status != http.StatusOK {
		m.logger.Error("uploaded file not found after transfer",
			slog.String("remote", remote),
			slog.Int("status", status),
		)

		return result, fmt.Errorf("%w: %s: metadata status %d", ErrNotVerified, remote, status)
	}

	result.Verified = true

	return result, nil
}

// compareUploadHash records whether the server's hash of the uploaded item
// matches the local content. A mismatch is only logged: SharePoint rewrites
// the metadata of some Office documents on upload, which changes their hash.
func (m *Manager) compareUploadHash(result *Result, uploaded *graph.Item) {
	if uploaded == nil || uploaded.QuickXorHash == "" {
		m.logger.Debug("server returned no content hash", slog.String("remote", result.Path))
		return
	}

	if uploaded.QuickXorHash != result.Hash {
		m.logger.Warn("uploaded content hash differs from local file",
			slog.String("remote", result.Path),
			slog.String("local_hash", result.Hash),
			slog.String("remote_hash", uploaded.QuickXorHash),
		)

		return
	}

	result.HashVerified = true
}

func (m *Manager) simpleUpload(
	ctx context.Context, driveID, parentID, name, localPath string, existing *graph.Item,
) (*Result, *graph.Item, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: reading %s: %w", localPath, err)
	}

	size := int64(len(data))
	hash := HashBytes(data)

	var body io.Reader = bytes.NewReader(data)
	if size > 0 {
		body = m.limiter.Reader(ctx, body)
	}

	if existing != nil {
		item, err := m.graph.ReplaceContent(ctx, driveID, existing.ID, body, size)
		if err != nil {
			return nil, nil, fmt.Errorf("transfer: replacing %s: %w", name, err)
		}

		return &Result{Size: size, Method: MethodSimpleReplace, Hash: hash}, item, nil
	}

	item, err := m.graph.SimpleUpload(ctx, driveID, parentID, name, body, size)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: uploading %s: %w", name, err)
	}

	return &Result{Size: size, Method: MethodSimpleCreate, Hash: hash}, item, nil
}

func (m *Manager) sessionUpload(
	ctx context.Context, driveID, parentID, name, localPath string,
) (*Result, *graph.Item, error) {
	hash, err := HashFile(localPath)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: stat %s: %w", localPath, err)
	}

	size := info.Size()
	ranges := ChunkRanges(size, ChunkSize)

	session, err := m.graph.CreateUploadSession(ctx, driveID, parentID, name)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: creating upload session for %s: %w", name, err)
	}

	m.logger.Info("upload session created",
		slog.String("name", name),
		slog.Int64("size", size),
		slog.Int("chunks", len(ranges)),
	)

	var item *graph.Item

	for i, r := range ranges {
		section := m.limiter.Reader(ctx, io.NewSectionReader(f, r.Start, r.Length()))

		done, err := m.graph.UploadChunk(ctx, session, section, r.Start, r.Length(), size)
		if err != nil {
			return nil, nil, fmt.Errorf("transfer: chunk %d/%d (%s): %w", i+1, len(ranges), r.ContentRange(size), err)
		}

		if done != nil {
			item = done
		}

		m.logger.Info("chunk uploaded",
			slog.Int("chunk", i+1),
			slog.Int("of", len(ranges)),
			slog.String("range", r.ContentRange(size)),
		)
	}

	return &Result{Size: size, Method: MethodSession, Chunks: len(ranges), Hash: hash}, item, nil
}
