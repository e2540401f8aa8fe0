package model

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize is the number of bytes in a Hash.
const HashSize = 32

// Hash is a 32-byte opaque digest. It is treated as an equality-comparable
// fixed-width value throughout the consensus layer, never as a specific
// digest algorithm's output.
type Hash [HashSize]byte

// ZeroHash is the Hash value with all bytes set to zero. It is never a valid
// block or transaction hash and is used as a sentinel in dependency vectors
// that have not yet been resolved.
var ZeroHash = Hash{}

// NewHashFromSlice builds a Hash from a byte slice of exactly HashSize bytes.
func NewHashFromSlice(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.Errorf("invalid hash length: want %d, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewHashFromString parses a hex-encoded hash.
func NewHashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "malformed hash hex string")
	}
	return NewHashFromSlice(b)
}

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Less reports whether h sorts strictly before other under lexicographic
// byte-order comparison. It is the tie-breaking order named throughout the
// consensus spec ("ties broken by smaller hash").
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// HashesLess reports whether the vector a sorts lexicographically before b,
// comparing element-wise, with a strict prefix sorting first. BlockFlow's
// best-deps selection does not call it.
func HashesLess(a, b []Hash) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i].Less(b[i])
		}
	}
	return len(a) < len(b)
}
