package bytecodec

import (
	"crypto/sha1" //nolint:gosec // wire format fixes the digest
	"crypto/subtle"
)

// HashSize is the full digest size of the checksum hash.
const HashSize = sha1.Size

// Uint interprets n bytes (n <= 8) at off as an unsigned little-endian integer.
func Uint(b []byte, off, n int) uint64 {
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[off+i])
	}
	return v
}

// PutUint32 returns v as 4 little-endian bytes.
func PutUint32(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// TruncatedHash returns the first size bytes of the SHA-1 digest of
// b[off:off+n]. size must not exceed HashSize.
func TruncatedHash(b []byte, off, n, size int) []byte {
	sum := sha1.Sum(b[off : off+n]) //nolint:gosec
	out := make([]byte, size)
	copy(out, sum[:size])
	return out
}

// Equal reports whether a and b hold the same bytes, in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
