package codec

import (
	"context"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// KeyLookup returns the candidate keys for a tag, in the order they should
// be tried. An empty result means the tag is unknown.
//
// Implementations may fail with domain.ErrInvalidTagIdentifier; any other
// failure is reported to decode callers as domain.ErrKeyLookupFailed.
type KeyLookup interface {
	Keys(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error)
}

// KeyLookupFunc adapts a function to KeyLookup.
type KeyLookupFunc func(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error)

// Keys calls f.
func (f KeyLookupFunc) Keys(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error) {
	return f(ctx, tagID)
}

// Fixed returns a KeyLookup that answers every tag with keys.
func Fixed(keys ...domain.TagKey) KeyLookup {
	return KeyLookupFunc(func(context.Context, domain.TagID) ([]domain.TagKey, error) {
		return keys, nil
	})
}

// PayloadParser turns an authenticated payload into a structured record.
// It runs only after a checksum matched.
type PayloadParser interface {
	ParsePayload(b []byte) (any, error)
}

// PayloadParserFunc adapts a function to PayloadParser.
type PayloadParserFunc func(b []byte) (any, error)

// ParsePayload calls f.
func (f PayloadParserFunc) ParsePayload(b []byte) (any, error) {
	return f(b)
}

// RawPayload accepts any payload and produces no structured record.
var RawPayload PayloadParser = PayloadParserFunc(func([]byte) (any, error) {
	return nil, nil
})
