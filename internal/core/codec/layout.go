package codec

import (
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/pkg/crypto/blockmode"
)

// Record layout.
const (
	offTagID   = 0x00
	offCounter = 0x08
	offIDm     = 0x0c
	offPayload = 0x14

	// headOffset is where the single-block pass starts. The block covers
	// the counter and the first 12 stream-encrypted bytes.
	headOffset = offCounter

	// nonceSeedSize is the number of leading bytes (tag id || counter)
	// copied into the stream nonce. The remaining 4 bytes are zero.
	nonceSeedSize = offIDm

	counterSize = 4

	// ChecksumSize is the length of the truncated SHA-1 checksum.
	ChecksumSize = 8

	// ReservedSize is the length of the trailing plaintext marker.
	ReservedSize = 1

	// ReservedMarker is the value written to the trailing byte.
	ReservedMarker byte = 2

	// MinRecordSize is the length of a record with an empty payload.
	MinRecordSize = offPayload + ChecksumSize + ReservedSize
)

// RecordSize returns the record length for a payload of n bytes.
func RecordSize(n int) int {
	return MinRecordSize + n
}

// nonce builds the 16-byte initial counter block from a record whose
// counter field is in plaintext.
func nonce(buf []byte) []byte {
	n := make([]byte, blockmode.BlockSize)
	copy(n, buf[:nonceSeedSize])
	return n
}

// configError maps a cipher precondition failure to the domain kind.
func configError(err error) error {
	return domain.ErrConfiguration.WithCause(err)
}
