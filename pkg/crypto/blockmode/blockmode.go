// Package blockmode wraps AES-128 in the two unpadded modes used by the tag
// URL record: a single fixed block encrypted in place, and a counter-mode
// stream over an arbitrary byte range.
//
// All range and key checks run before the cipher is touched. A failed check
// leaves the buffer unchanged.
package blockmode

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	// KeySize is the only supported key length (AES-128).
	KeySize = 16

	// BlockSize is the cipher block size, which is also the nonce size.
	BlockSize = aes.BlockSize
)

var (
	// ErrInvalidKeySize is returned for keys that are not KeySize bytes.
	ErrInvalidKeySize = errors.New("blockmode: invalid key size")

	// ErrInvalidNonce is returned for counter blocks that are not BlockSize bytes.
	ErrInvalidNonce = errors.New("blockmode: invalid nonce size")

	// ErrInvalidRange is returned when an offset or length falls outside the buffer.
	ErrInvalidRange = errors.New("blockmode: range out of bounds")
)

// Cipher performs in-place AES-128 operations on caller-owned buffers.
// It is safe for concurrent use as long as callers use distinct buffers.
type Cipher struct {
	block cipher.Block
}

// New returns a Cipher for a 16-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// EncryptBlock encrypts buf[off:off+BlockSize] in place.
func (c *Cipher) EncryptBlock(buf []byte, off int) error {
	if err := checkRange(buf, off, BlockSize); err != nil {
		return err
	}
	c.block.Encrypt(buf[off:off+BlockSize], buf[off:off+BlockSize])
	return nil
}

// DecryptBlock decrypts buf[off:off+BlockSize] in place.
func (c *Cipher) DecryptBlock(buf []byte, off int) error {
	if err := checkRange(buf, off, BlockSize); err != nil {
		return err
	}
	c.block.Decrypt(buf[off:off+BlockSize], buf[off:off+BlockSize])
	return nil
}

// EncryptStream XORs buf[off:off+n] with the CTR keystream that starts at
// nonce. The counter is the whole block, incremented big-endian once per
// 16 bytes. A trailing partial block uses a prefix of the keystream.
func (c *Cipher) EncryptStream(nonce, buf []byte, off, n int) error {
	return c.stream(nonce, buf, off, n)
}

// DecryptStream is EncryptStream under the name that reads correctly at
// decode call sites.
func (c *Cipher) DecryptStream(nonce, buf []byte, off, n int) error {
	return c.stream(nonce, buf, off, n)
}

func (c *Cipher) stream(nonce, buf []byte, off, n int) error {
	if len(nonce) != BlockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonce, len(nonce), BlockSize)
	}
	if err := checkRange(buf, off, n); err != nil {
		return err
	}
	region := buf[off : off+n]
	cipher.NewCTR(c.block, nonce).XORKeyStream(region, region)
	return nil
}

func checkRange(buf []byte, off, n int) error {
	if off < 0 || n < 0 || off > len(buf) || n > len(buf)-off {
		return fmt.Errorf("%w: offset %d length %d buffer %d", ErrInvalidRange, off, n, len(buf))
	}
	return nil
}
