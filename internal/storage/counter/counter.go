// Package counter persists the per-tag encounter counter.
//
// Every URL a tag emits carries a counter that must never repeat for the
// same tag id. The store hands out strictly increasing values and refuses
// to wrap past the 32-bit maximum.
package counter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/storage"
)

var (
	// ErrExhausted is returned when a counter has reached its maximum.
	ErrExhausted = errors.New("counter: exhausted")

	// ErrRewind is returned by Set when the value is not ahead of the
	// stored one.
	ErrRewind = errors.New("counter: value would rewind")
)

const keyPrefix = "counter/"

// Store keeps one counter per tag in a KV engine.
type Store struct {
	kv storage.KVEngine
}

// New returns a Store backed by kv.
func New(kv storage.KVEngine) *Store {
	return &Store{kv: kv}
}

func key(id domain.TagID) []byte {
	return append([]byte(keyPrefix), id[:]...)
}

// Next increments the counter for id and returns the new value. The first
// call for a tag returns 1.
func (s *Store) Next(ctx context.Context, id domain.TagID) (uint32, error) {
	var next uint32
	err := s.kv.Update(ctx, key(id), func(old []byte) ([]byte, error) {
		cur, err := decode(old)
		if err != nil {
			return nil, err
		}
		if cur == ^uint32(0) {
			return nil, ErrExhausted
		}
		next = cur + 1
		return encode(next), nil
	})
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", id, err)
	}
	return next, nil
}

// Current returns the last value handed out for id, or 0.
func (s *Store) Current(ctx context.Context, id domain.TagID) (uint32, error) {
	b, err := s.kv.Get(ctx, key(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", id, err)
	}
	return decode(b)
}

// Set moves the counter for id forward to v. It is used when a tag is
// re-provisioned with a counter taken from its own memory.
func (s *Store) Set(ctx context.Context, id domain.TagID, v uint32) error {
	err := s.kv.Update(ctx, key(id), func(old []byte) ([]byte, error) {
		cur, err := decode(old)
		if err != nil {
			return nil, err
		}
		if old != nil && v <= cur {
			return nil, ErrRewind
		}
		return encode(v), nil
	})
	if err != nil {
		return fmt.Errorf("counter %s: %w", id, err)
	}
	return nil
}

func encode(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decode(b []byte) (uint32, error) {
	if b == nil {
		return 0, nil
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("counter: corrupt value (%d bytes)", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}
