package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinKeyLength is the minimum master key length.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the salt length for passphrase derivation.
	SaltLength = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

var (
	// ErrKeyTooShort is returned for master keys under MinKeyLength bytes.
	ErrKeyTooShort = errors.New("seal: master key too short (minimum 16 bytes)")

	// ErrPassphraseTooWeak is returned for passphrases under MinPassphraseLength.
	ErrPassphraseTooWeak = errors.New("seal: passphrase too weak (minimum 8 characters)")

	// ErrInvalidSalt is returned for salts that are not SaltLength bytes.
	ErrInvalidSalt = errors.New("seal: invalid salt length")
)

// DeriveSubkey derives a purpose-bound subkey from a master key with
// HKDF-SHA256.
func DeriveSubkey(masterKey []byte, purpose string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	r := hkdf.New(sha256.New, masterKey, nil, []byte(purpose))
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("seal: derive subkey: %w", err)
	}
	return key, nil
}

// KeyFromPassphrase stretches a passphrase into a 32-byte master key with
// Argon2id. The same salt must be supplied to derive the same key again.
func KeyFromPassphrase(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooWeak
	}
	if len(salt) != SaltLength {
		return nil, ErrInvalidSalt
	}
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen), nil
}

// NewSalt returns a random salt for KeyFromPassphrase.
func NewSalt() ([]byte, error) {
	return GenerateKey(SaltLength)
}

// GenerateKey returns length random bytes.
func GenerateKey(length int) ([]byte, error) {
	if length < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("seal: generate key: %w", err)
	}
	return key, nil
}

// Zero overwrites key in place.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
