package transfer

import (
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/spdrive/spdrive/pkg/quickxorhash"
)

// maxDownloadAttempts bounds re-downloads after a content hash mismatch.
// When every attempt mismatches, the last download is kept and reported as
// unverified rather than failing.
const maxDownloadAttempts = 3

func encodeHash(h hash.Hash) string {
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// HashBytes returns the base64 QuickXorHash of data.
func HashBytes(data []byte) string {
	h := quickxorhash.New()
	h.Write(data) //nolint:errcheck // hash writes never fail

	return encodeHash(h)
}

// HashFile returns the base64 QuickXorHash of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("transfer: opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := quickxorhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("transfer: hashing %s: %w", path, err)
	}

	return encodeHash(h), nil
}
