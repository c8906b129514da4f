package keystore

import (
	"context"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// ReadOnly wraps a store so that Add and Remove fail with
// domain.ErrKeyStoreReadOnly. Lookups pass through.
func ReadOnly(s Store) Store {
	return readOnly{s}
}

type readOnly struct {
	Store
}

func (readOnly) Add(context.Context, domain.TagID, domain.TagKey, string) (*Entry, error) {
	return nil, domain.ErrKeyStoreReadOnly
}

func (readOnly) Remove(context.Context, domain.TagID, string) error {
	return domain.ErrKeyStoreReadOnly
}
