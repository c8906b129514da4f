// Package keystoretest provides key stores for tests.
package keystoretest

import (
	"context"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// Zero answers every lookup with the all-zero key. It matches tokens written
// by tags that were never personalized.
type Zero struct{}

// Keys returns a single zero key.
func (Zero) Keys(context.Context, domain.TagID) ([]domain.TagKey, error) {
	return []domain.TagKey{{}}, nil
}

// Fail is a lookup that always returns Err.
type Fail struct {
	Err error
}

// Keys returns f.Err.
func (f Fail) Keys(context.Context, domain.TagID) ([]domain.TagKey, error) {
	return nil, f.Err
}
