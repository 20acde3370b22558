// Package quickxorhash implements QuickXorHash, the content hash OneDrive
// and SharePoint report for every file.
//
// Each input byte is XORed into a 160-bit circular buffer at a bit position
// that advances by 11 per byte. The digest is the buffer with the total
// input length (little-endian uint64) XORed into its last 8 bytes.
//
// Reference description by Microsoft:
// https://learn.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxorhash

import (
	"encoding/binary"
	"hash"
)

const (
	// Size is the length, in bytes, of a QuickXorHash digest.
	Size = 20

	// BlockSize is the preferred input block size for the hash, in bytes.
	BlockSize = 64

	shift       = 11
	widthInBits = Size * 8
	lengthBytes = 8
)

type digest struct {
	buf    [Size]byte
	pos    int // bit position of the next byte, 0 <= pos < widthInBits
	length uint64
}

// New returns a new hash.Hash computing the QuickXorHash checksum.
func New() hash.Hash {
	return &digest{}
}

// Write always returns len(p), nil.
func (d *digest) Write(p []byte) (int, error) {
	pos := d.pos

	for _, b := range p {
		i, off := pos/8, uint(pos%8)
		d.buf[i] ^= b << off

		if off != 0 {
			d.buf[(i+1)%Size] ^= b >> (8 - off)
		}

		pos += shift
		if pos >= widthInBits {
			pos -= widthInBits
		}
	}

	d.pos = pos
	d.length += uint64(len(p))

	return len(p), nil
}

// Sum appends the digest to b without changing the hash state.
func (d *digest) Sum(b []byte) []byte {
	out := d.buf

	var n [lengthBytes]byte
	binary.LittleEndian.PutUint64(n[:], d.length)

	for i, v := range n {
		out[Size-lengthBytes+i] ^= v
	}

	return append(b, out[:]...)
}

func (d *digest) Reset() { *d = digest{} }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return BlockSize }
