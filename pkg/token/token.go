package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	// Prefix marks generated admin tokens.
	Prefix = "tuat_"

	// HashPrefix marks a token digest.
	HashPrefix = "sha256:"

	// DefaultLength is the number of random bytes in a token.
	DefaultLength = 32
)

// Generate returns a new random admin token.
func Generate() (string, error) {
	b := make([]byte, DefaultLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash returns the digest of token in HashPrefix form.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return HashPrefix + hex.EncodeToString(sum[:])
}

// IsHash reports whether s is a well-formed token digest.
func IsHash(s string) bool {
	rest, ok := strings.CutPrefix(s, HashPrefix)
	if !ok || len(rest) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

// Digest normalizes a configured secret: a digest is returned as is
// (lowercased), anything else is hashed. Empty input yields "".
func Digest(secret string) string {
	switch {
	case secret == "":
		return ""
	case IsHash(secret):
		return strings.ToLower(secret)
	default:
		return Hash(secret)
	}
}

// Verify reports whether token matches digest, which must be in HashPrefix
// form. An empty digest never matches.
func Verify(token, digest string) bool {
	if digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(token)), []byte(digest)) == 1
}
