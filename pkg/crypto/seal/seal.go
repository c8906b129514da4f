package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies the AEAD.
type Algorithm string

const (
	AESGCM   Algorithm = "aes-gcm"
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// subkeySize is the AEAD key size for both algorithms (AES-256, ChaCha20).
const subkeySize = 32

var (
	// ErrOpenFailed is returned when a sealed value fails authentication.
	ErrOpenFailed = errors.New("seal: open failed - wrong key or corrupted data")

	// ErrShortCiphertext is returned for values shorter than nonce plus tag.
	ErrShortCiphertext = errors.New("seal: ciphertext too short")
)

// Sealer seals and opens values under one derived subkey.
type Sealer struct {
	aead cipher.AEAD
	algo Algorithm
}

// Preferred returns the algorithm with hardware support on this platform.
func Preferred() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return AESGCM
	default:
		return ChaCha20
	}
}

// New derives a subkey for purpose from masterKey and returns a Sealer
// using algo. An empty algo selects Preferred().
func New(masterKey []byte, purpose string, algo Algorithm) (*Sealer, error) {
	if algo == "" {
		algo = Preferred()
	}
	key, err := DeriveSubkey(masterKey, purpose, subkeySize)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	var aead cipher.AEAD
	switch algo {
	case AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err = cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
	case ChaCha20:
		aead, err = chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("seal: unsupported algorithm: %s", algo)
	}

	return &Sealer{aead: aead, algo: algo}, nil
}

// Algorithm returns the AEAD in use.
func (s *Sealer) Algorithm() Algorithm {
	return s.algo
}

// Overhead is the number of bytes Seal adds to a plaintext.
func (s *Sealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}

// Seal encrypts plaintext bound to aad.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("seal: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts a value produced by Seal with the same aad.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	out, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], aad)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return out, nil
}
