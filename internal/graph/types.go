package graph

import "time"

// Item is a drive item (file or folder), normalized from the Graph response.
type Item struct {
	ID         string
	Name       string
	DriveID    string
	ParentID   string
	ParentPath string
	Size       int64
	ETag       string
	IsFolder   bool
	MimeType   string
	ModifiedAt time.Time

	// QuickXorHash is the base64 content hash; empty when the server sent none.
	QuickXorHash string

	// DownloadURL is pre-authenticated and short-lived. Never log it.
	DownloadURL string
}

// UploadSession is a resumable upload target. UploadURL is pre-authenticated.
type UploadSession struct {
	UploadURL      string
	ExpirationTime time.Time
}
