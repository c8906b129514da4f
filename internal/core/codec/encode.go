package codec

import (
	"encoding/base64"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/pkg/bytecodec"
	"github.com/yndnr/tagurl-go/pkg/crypto/blockmode"
)

// Encode returns the URL-safe token for r under key. Output is unpadded
// Base64 and fully deterministic. r.Station is ignored; r.Payload must
// already hold the serialized record.
func Encode(r domain.Reading, key domain.TagKey) (string, error) {
	buf, err := EncodeRecord(r, key)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EncodeRecord returns the encrypted record before Base64 encoding.
func EncodeRecord(r domain.Reading, key domain.TagKey) ([]byte, error) {
	c, err := blockmode.New(key[:])
	if err != nil {
		return nil, configError(err)
	}

	n := len(r.Payload)
	sumOff := offPayload + n
	buf := make([]byte, RecordSize(n))

	copy(buf[offTagID:], r.TagID[:])
	ctr := bytecodec.PutUint32(r.Counter)
	copy(buf[offCounter:], ctr[:])
	copy(buf[offIDm:], r.IDm[:])
	copy(buf[offPayload:], r.Payload)
	copy(buf[sumOff:], bytecodec.TruncatedHash(buf, 0, sumOff, ChecksumSize))

	// Inner pass before the outer pass: the nonce needs the plaintext counter.
	end := len(buf) - ReservedSize
	if err := c.EncryptStream(nonce(buf), buf, offIDm, end-offIDm); err != nil {
		return nil, configError(err)
	}
	if err := c.EncryptBlock(buf, headOffset); err != nil {
		return nil, configError(err)
	}

	buf[end] = ReservedMarker
	return buf, nil
}
