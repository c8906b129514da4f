package seal

import (
	"bytes"
	"errors"
	"testing"
)

var master = []byte("0123456789abcdef0123456789abcdef")

func TestSealOpen(t *testing.T) {
	for _, algo := range []Algorithm{AESGCM, ChaCha20, ""} {
		t.Run(string(algo), func(t *testing.T) {
			s, err := New(master, "test", algo)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			plain := []byte("tag key material")
			aad := []byte("aabbccddeeff0011")

			sealed, err := s.Seal(plain, aad)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(sealed) != len(plain)+s.Overhead() {
				t.Errorf("sealed length = %d, want %d", len(sealed), len(plain)+s.Overhead())
			}
			if bytes.Contains(sealed, plain) {
				t.Error("sealed value contains plaintext")
			}

			got, err := s.Open(sealed, aad)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("Open() = %q, want %q", got, plain)
			}
		})
	}
}

func TestSeal_RandomNonce(t *testing.T) {
	s, _ := New(master, "test", AESGCM)
	a, _ := s.Seal([]byte("x"), nil)
	b, _ := s.Seal([]byte("x"), nil)
	if bytes.Equal(a, b) {
		t.Error("Seal() produced identical output twice")
	}
}

func TestOpen_Failures(t *testing.T) {
	s, _ := New(master, "test", ChaCha20)
	sealed, _ := s.Seal([]byte("secret"), []byte("aad"))

	other, _ := New(master, "other-purpose", ChaCha20)
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 1

	tests := []struct {
		name   string
		sealer *Sealer
		in     []byte
		aad    []byte
		want   error
	}{
		{"wrong aad", s, sealed, []byte("other"), ErrOpenFailed},
		{"wrong purpose", other, sealed, []byte("aad"), ErrOpenFailed},
		{"tampered", s, tampered, []byte("aad"), ErrOpenFailed},
		{"too short", s, sealed[:10], []byte("aad"), ErrShortCiphertext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sealer.Open(tt.in, tt.aad); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(master[:8], "p", AESGCM); !errors.Is(err, ErrKeyTooShort) {
		t.Errorf("New(short key) error = %v, want ErrKeyTooShort", err)
	}
	if _, err := New(master, "p", "rot13"); err == nil {
		t.Error("New(unknown algorithm) error = nil")
	}
}

func TestDeriveSubkey(t *testing.T) {
	a, err := DeriveSubkey(master, "a", 32)
	if err != nil {
		t.Fatalf("DeriveSubkey() error = %v", err)
	}
	a2, _ := DeriveSubkey(master, "a", 32)
	b, _ := DeriveSubkey(master, "b", 32)

	if !bytes.Equal(a, a2) {
		t.Error("DeriveSubkey() is not deterministic")
	}
	if bytes.Equal(a, b) {
		t.Error("different purposes derived the same key")
	}
}

func TestKeyFromPassphrase(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}

	k1, err := KeyFromPassphrase([]byte("correct horse"), salt)
	if err != nil {
		t.Fatalf("KeyFromPassphrase() error = %v", err)
	}
	k2, _ := KeyFromPassphrase([]byte("correct horse"), salt)
	if !bytes.Equal(k1, k2) || len(k1) != 32 {
		t.Error("KeyFromPassphrase() is not reproducible with the same salt")
	}

	if _, err := KeyFromPassphrase([]byte("short"), salt); !errors.Is(err, ErrPassphraseTooWeak) {
		t.Errorf("weak passphrase error = %v", err)
	}
	if _, err := KeyFromPassphrase([]byte("correct horse"), salt[:4]); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("short salt error = %v", err)
	}
}

func TestZero(t *testing.T) {
	k := []byte{1, 2, 3}
	Zero(k)
	if !bytes.Equal(k, []byte{0, 0, 0}) {
		t.Errorf("Zero() left %v", k)
	}
}
