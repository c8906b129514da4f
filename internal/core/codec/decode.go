package codec

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/pkg/bytecodec"
	"github.com/yndnr/tagurl-go/pkg/crypto/blockmode"
)

// Result is a successful decode together with how it was reached.
type Result struct {
	Reading domain.Reading

	// KeyIndex is the position of the matching key in the lookup result.
	KeyIndex int

	// Candidates is the number of keys the lookup returned.
	Candidates int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithPayloadParser sets the parser applied to authenticated payloads.
func WithPayloadParser(p PayloadParser) Option {
	return func(d *Decoder) {
		if p != nil {
			d.parser = p
		}
	}
}

// WithParallelism lets the decoder try up to n keys at once when a tag has
// more than n candidates. n <= 1 keeps the sequential scan. The outcome is
// the same either way: the lowest-index matching key wins.
func WithParallelism(n int) Option {
	return func(d *Decoder) {
		d.parallelism = n
	}
}

// Decoder decodes tokens. The zero value is not usable; use NewDecoder.
// A Decoder is safe for concurrent use.
type Decoder struct {
	parser      PayloadParser
	parallelism int
}

// NewDecoder creates a Decoder with the raw payload parser.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{parser: RawPayload, parallelism: 1}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode decodes token with the raw payload parser.
func Decode(ctx context.Context, token string, lookup KeyLookup) (*domain.Reading, error) {
	return DecodeWith(ctx, token, lookup, RawPayload)
}

// DecodeWith decodes token and parses its payload with parser.
func DecodeWith(ctx context.Context, token string, lookup KeyLookup, parser PayloadParser) (*domain.Reading, error) {
	res, err := NewDecoder(WithPayloadParser(parser)).Decode(ctx, token, lookup)
	if err != nil {
		return nil, err
	}
	return &res.Reading, nil
}

// Decode reverses Encode. It returns exactly one of a full result or one
// error kind: ErrMalformedInput, ErrUnknownTag, ErrNoMatchingKey,
// ErrMalformedPayload, ErrConfiguration, ErrInvalidTagIdentifier or
// ErrKeyLookupFailed.
func (d *Decoder) Decode(ctx context.Context, token string, lookup KeyLookup) (*Result, error) {
	raw, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}

	var tagID domain.TagID
	copy(tagID[:], raw[offTagID:offTagID+domain.TagIDSize])

	keys, err := lookup.Keys(ctx, tagID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTagIdentifier) {
			return nil, err
		}
		return nil, domain.ErrKeyLookupFailed.WithCause(err)
	}
	if len(keys) == 0 {
		return nil, domain.ErrUnknownTag
	}

	idx, work, err := d.findKey(raw, keys)
	if err != nil {
		return nil, err
	}

	res := &Result{KeyIndex: idx, Candidates: len(keys)}
	r := &res.Reading
	r.TagID = tagID
	r.Counter = uint32(bytecodec.Uint(work, offCounter, counterSize))
	copy(r.IDm[:], work[offIDm:offIDm+domain.IDmSize])
	r.Payload = append([]byte{}, work[offPayload:len(work)-ReservedSize-ChecksumSize]...)

	// The key is known to be right here, so a parse failure is final.
	station, err := d.parser.ParsePayload(r.Payload)
	if err != nil {
		return nil, domain.ErrMalformedPayload.WithCause(err)
	}
	r.Station = station
	return res, nil
}

// DecodeToken turns the URL parameter into record bytes. Padded and
// unpadded URL-safe Base64 are both accepted.
func DecodeToken(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMalformedInput.WithDetails("empty token")
	}
	enc := base64.RawURLEncoding
	if strings.HasSuffix(token, "=") {
		enc = base64.URLEncoding
	}
	raw, err := enc.DecodeString(token)
	if err != nil {
		return nil, domain.ErrMalformedInput.WithDetails("invalid base64").WithCause(err)
	}
	if len(raw) < MinRecordSize {
		return nil, domain.ErrMalformedInput.WithDetails("record too short")
	}
	return raw, nil
}

// findKey returns the index of the first key whose checksum validates and
// the plaintext record it produced.
func (d *Decoder) findKey(raw []byte, keys []domain.TagKey) (int, []byte, error) {
	if d.parallelism > 1 && len(keys) > d.parallelism {
		return d.findKeyParallel(raw, keys)
	}
	for i, key := range keys {
		work, ok, err := tryKey(raw, key)
		if err != nil {
			return -1, nil, err
		}
		if ok {
			return i, work, nil
		}
	}
	return -1, nil, domain.ErrNoMatchingKey
}

func (d *Decoder) findKeyParallel(raw []byte, keys []domain.TagKey) (int, []byte, error) {
	var (
		best     atomic.Int64
		next     atomic.Int64
		mu       sync.Mutex
		bestBuf  []byte
		firstErr error
		wg       sync.WaitGroup
	)
	best.Store(int64(len(keys)))

	for w := 0; w < d.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= int64(len(keys)) || i >= best.Load() {
					return
				}
				work, ok, err := tryKey(raw, keys[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				if !ok {
					continue
				}
				mu.Lock()
				if i < best.Load() {
					best.Store(i)
					bestBuf = work
				}
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return -1, nil, firstErr
	}
	if i := best.Load(); i < int64(len(keys)) {
		return int(i), bestBuf, nil
	}
	return -1, nil, domain.ErrNoMatchingKey
}

// tryKey decrypts a private copy of raw with key and checks the checksum.
func tryKey(raw []byte, key domain.TagKey) ([]byte, bool, error) {
	c, err := blockmode.New(key[:])
	if err != nil {
		return nil, false, configError(err)
	}

	work := make([]byte, len(raw))
	copy(work, raw)

	if err := c.DecryptBlock(work, headOffset); err != nil {
		return nil, false, configError(err)
	}
	end := len(work) - ReservedSize
	if err := c.DecryptStream(nonce(work), work, offIDm, end-offIDm); err != nil {
		return nil, false, configError(err)
	}

	sumOff := end - ChecksumSize
	want := bytecodec.TruncatedHash(work, 0, sumOff, ChecksumSize)
	return work, bytecodec.Equal(want, work[sumOff:end]), nil
}
