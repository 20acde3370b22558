package transfer

import "fmt"

// Upload size thresholds used by Graph.
const (
	// SimpleUploadMaxSize is the largest file sent with a single PUT.
	SimpleUploadMaxSize int64 = 4 * 1024 * 1024
	// ChunkSize is the upload session chunk size. It is a multiple of the
	// 320 KiB alignment Graph requires for every chunk but the last.
	ChunkSize int64 = 10 * 1024 * 1024
)

// Range is an inclusive byte range [Start, End].
type Range struct {
	Start int64
	End   int64
}

// Length is the number of bytes in the range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a file of total bytes.
func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// UsesSession reports whether a file of size bytes needs an upload session.
func UsesSession(size int64) bool {
	return size > SimpleUploadMaxSize
}

// ChunkRanges splits [0, size) into consecutive ranges of at most chunk
// bytes. There are ceil(size/chunk) ranges; an exact multiple of chunk does
// not produce an empty trailing range, and size 0 produces none.
func ChunkRanges(size, chunk int64) []Range {
	if size <= 0 || chunk <= 0 {
		return nil
	}

	ranges := make([]Range, 0, (size+chunk-1)/chunk)

	for start := int64(0); start < size; start += chunk {
		end := min(start+chunk, size) - 1
		ranges = append(ranges, Range{Start: start, End: end})
	}

	return ranges
}
