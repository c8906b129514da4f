package bytecodec

import (
	"bytes"
	"crypto/sha1" //nolint:gosec
	"testing"
)

func TestUint(t *testing.T) {
	b := []byte{0xff, 0x2a, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	tests := []struct {
		name string
		off  int
		n    int
		want uint64
	}{
		{"single byte", 0, 1, 0xff},
		{"u32 at offset", 1, 4, 42},
		{"u64", 5, 8, 0x0807060504030201},
		{"zero length", 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Uint(b, tt.off, tt.n); got != tt.want {
				t.Errorf("Uint(%d, %d) = %#x, want %#x", tt.off, tt.n, got, tt.want)
			}
		})
	}
}

func TestPutUint32(t *testing.T) {
	got := PutUint32(0x12345678)
	want := [4]byte{0x78, 0x56, 0x34, 0x12}
	if got != want {
		t.Errorf("PutUint32() = %x, want %x", got, want)
	}

	for _, v := range []uint32{0, 1, 42, 1 << 31, 0xffffffff} {
		b := PutUint32(v)
		if back := Uint(b[:], 0, 4); back != uint64(v) {
			t.Errorf("Uint(PutUint32(%d)) = %d", v, back)
		}
	}
}

func TestTruncatedHash(t *testing.T) {
	data := []byte("prefix-abc-suffix")
	full := sha1.Sum([]byte("abc")) //nolint:gosec

	got := TruncatedHash(data, 7, 3, 8)
	if !bytes.Equal(got, full[:8]) {
		t.Errorf("TruncatedHash() = %x, want %x", got, full[:8])
	}

	if len(TruncatedHash(data, 0, 0, HashSize)) != HashSize {
		t.Error("TruncatedHash() full size length mismatch")
	}
}

func TestEqual(t *testing.T) {
	if !Equal([]byte{1, 2, 3}, []byte{1, 2, 3}) {
		t.Error("Equal() = false for identical slices")
	}
	if Equal([]byte{1, 2, 3}, []byte{1, 2, 4}) {
		t.Error("Equal() = true for different slices")
	}
	if Equal([]byte{1, 2}, []byte{1, 2, 3}) {
		t.Error("Equal() = true for different lengths")
	}
}
