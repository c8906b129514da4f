package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	// TagIDSize is the size of a tag identifier in bytes.
	TagIDSize = 8

	// IDmSize is the size of a transponder identifier in bytes.
	IDmSize = 8

	// TagKeySize is the size of a tag key in bytes (AES-128).
	TagKeySize = 16
)

// TagID identifies a tag in the clear. It is the key-lookup key and the
// first half of the stream nonce.
type TagID [TagIDSize]byte

// IDm identifies the physical transponder. It only travels encrypted.
type IDm [IDmSize]byte

// TagKey is a 128-bit symmetric key shared by a tag and the decoder.
type TagKey [TagKeySize]byte

// Reading is everything recovered from one tag URL.
type Reading struct {
	TagID   TagID
	IDm     IDm
	Counter uint32
	Payload []byte

	// Station holds the parsed payload when a structured parser is
	// configured. It is nil for raw payloads.
	Station any
}

// String returns the lowercase hex form.
func (id TagID) String() string { return hex.EncodeToString(id[:]) }

// String returns the lowercase hex form.
func (id IDm) String() string { return hex.EncodeToString(id[:]) }

// String never reveals key material.
func (k TagKey) String() string { return "[REDACTED]" }

// Hex returns the key as lowercase hex. Use only where the key must be
// shown to an operator.
func (k TagKey) Hex() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether every byte of the key is zero.
func (k TagKey) IsZero() bool { return k == TagKey{} }

// TagIDFromBytes copies b into a TagID.
func TagIDFromBytes(b []byte) (TagID, error) {
	var id TagID
	if len(b) != TagIDSize {
		return id, ErrInvalidTagIdentifier.WithDetails("tag id must be 8 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// ParseTagID parses a 16-character hex tag id. Colons and spaces are ignored.
func ParseTagID(s string) (TagID, error) {
	b, err := decodeHex(s)
	if err != nil {
		return TagID{}, ErrInvalidTagIdentifier.WithCause(err)
	}
	return TagIDFromBytes(b)
}

// ParseIDm parses a 16-character hex IDm.
func ParseIDm(s string) (IDm, error) {
	var id IDm
	b, err := decodeHex(s)
	if err != nil {
		return id, ErrInvalidArgument.WithDetails("idm is not hex").WithCause(err)
	}
	if len(b) != IDmSize {
		return id, ErrInvalidArgument.WithDetails("idm must be 8 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// ParseTagKey parses a 32-character hex key.
func ParseTagKey(s string) (TagKey, error) {
	var k TagKey
	b, err := decodeHex(s)
	if err != nil {
		return k, ErrInvalidTagKey.WithDetails("key is not hex")
	}
	if len(b) != TagKeySize {
		return k, ErrInvalidTagKey.WithDetails("key must be 16 bytes")
	}
	copy(k[:], b)
	return k, nil
}

// GenerateTagKey returns a random key from the system CSPRNG.
func GenerateTagKey() (TagKey, error) {
	var k TagKey
	if _, err := rand.Read(k[:]); err != nil {
		return k, ErrInternalServer.WithCause(err)
	}
	return k, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(":", "", " ", "", "-", "").Replace(strings.TrimSpace(s))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
