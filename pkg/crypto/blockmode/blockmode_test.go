package blockmode

import (
	"bytes"
	"crypto/aes"
	"encoding/hex"
	"errors"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestNew_KeySize(t *testing.T) {
	for _, n := range []int{0, 15, 17, 24, 32} {
		if _, err := New(make([]byte, n)); !errors.Is(err, ErrInvalidKeySize) {
			t.Errorf("New(%d bytes) error = %v, want ErrInvalidKeySize", n, err)
		}
	}
	if _, err := New(make([]byte, KeySize)); err != nil {
		t.Errorf("New(16 bytes) error = %v", err)
	}
}

// FIPS-197 appendix C.1.
func TestEncryptBlock_KnownAnswer(t *testing.T) {
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plain := mustHex(t, "00112233445566778899aabbccddeeff")
	want := mustHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	c, err := New(key)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	buf := append([]byte{0xee, 0xee}, plain...)
	buf = append(buf, 0xee)
	if err := c.EncryptBlock(buf, 2); err != nil {
		t.Fatalf("EncryptBlock() error = %v", err)
	}
	if !bytes.Equal(buf[2:18], want) {
		t.Errorf("EncryptBlock() = %x, want %x", buf[2:18], want)
	}
	if buf[0] != 0xee || buf[1] != 0xee || buf[18] != 0xee {
		t.Error("EncryptBlock() touched bytes outside the block")
	}

	if err := c.DecryptBlock(buf, 2); err != nil {
		t.Fatalf("DecryptBlock() error = %v", err)
	}
	if !bytes.Equal(buf[2:18], plain) {
		t.Errorf("DecryptBlock() = %x, want %x", buf[2:18], plain)
	}
}

// NIST SP 800-38A F.5.1, first two blocks plus a partial third.
func TestEncryptStream_KnownAnswer(t *testing.T) {
	key := mustHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	nonce := mustHex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	plain := mustHex(t, "6bc1bee22e409f96e93d7e117393172a"+
		"ae2d8a571e03ac9c9eb76fac45af8e51"+
		"30c81c46a35ce411")
	want := mustHex(t, "874d6191b620e3261bef6864990db6ce"+
		"9806f66b7970fdff8617187bb9fffdff"+
		"5ae4df3edbd5d35e")

	c, err := New(key)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	buf := append([]byte(nil), plain...)
	if err := c.EncryptStream(nonce, buf, 0, len(buf)); err != nil {
		t.Fatalf("EncryptStream() error = %v", err)
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("EncryptStream() = %x, want %x", buf, want)
	}

	if err := c.DecryptStream(nonce, buf, 0, len(buf)); err != nil {
		t.Fatalf("DecryptStream() error = %v", err)
	}
	if !bytes.Equal(buf, plain) {
		t.Errorf("DecryptStream() = %x, want %x", buf, plain)
	}
}

func TestStream_SubRange(t *testing.T) {
	c, _ := New(make([]byte, KeySize))
	nonce := make([]byte, BlockSize)

	buf := bytes.Repeat([]byte{0x55}, 40)
	if err := c.EncryptStream(nonce, buf, 12, 27); err != nil {
		t.Fatalf("EncryptStream() error = %v", err)
	}
	for i, b := range buf {
		inside := i >= 12 && i < 39
		if !inside && b != 0x55 {
			t.Fatalf("byte %d outside range modified", i)
		}
	}
}

func TestRangeChecks(t *testing.T) {
	c, _ := New(make([]byte, KeySize))
	nonce := make([]byte, BlockSize)

	tests := []struct {
		name string
		run  func(buf []byte) error
		want error
	}{
		{"block past end", func(b []byte) error { return c.EncryptBlock(b, 10) }, ErrInvalidRange},
		{"block negative offset", func(b []byte) error { return c.DecryptBlock(b, -1) }, ErrInvalidRange},
		{"stream past end", func(b []byte) error { return c.EncryptStream(nonce, b, 4, 30) }, ErrInvalidRange},
		{"stream negative length", func(b []byte) error { return c.DecryptStream(nonce, b, 0, -1) }, ErrInvalidRange},
		{"stream offset beyond buffer", func(b []byte) error { return c.EncryptStream(nonce, b, 25, 0) }, ErrInvalidRange},
		{"short nonce", func(b []byte) error { return c.EncryptStream(nonce[:12], b, 0, 4) }, ErrInvalidNonce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.Repeat([]byte{0xaa}, 24)
			err := tt.run(buf)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !bytes.Equal(buf, bytes.Repeat([]byte{0xaa}, 24)) {
				t.Error("buffer modified on precondition failure")
			}
		})
	}
}

func TestStream_EmptyRange(t *testing.T) {
	c, _ := New(make([]byte, KeySize))
	buf := make([]byte, 8)
	if err := c.EncryptStream(make([]byte, aes.BlockSize), buf, 8, 0); err != nil {
		t.Errorf("EncryptStream(empty range at end) error = %v", err)
	}
}
