package keystore

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// Entry is one key registered for a tag.
type Entry struct {
	ID        string        `json:"id" yaml:"id"`
	TagID     domain.TagID  `json:"-" yaml:"-"`
	Key       domain.TagKey `json:"-" yaml:"-"`
	Label     string        `json:"label,omitempty" yaml:"label,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// Store is a key table. Keys implements codec.KeyLookup.
type Store interface {
	// Keys returns the keys of a tag, newest first.
	Keys(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error)

	// List returns the entries of a tag, newest first.
	List(ctx context.Context, tagID domain.TagID) ([]Entry, error)

	// Tags returns every tag with at least one key.
	Tags(ctx context.Context) ([]domain.TagID, error)

	// Add registers key for tagID as the newest key.
	Add(ctx context.Context, tagID domain.TagID, key domain.TagKey, label string) (*Entry, error)

	// Remove deletes one entry. Returns domain.ErrKeyNotFound if it does not exist.
	Remove(ctx context.Context, tagID domain.TagID, id string) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newEntryID returns a ULID. IDs generated by one process sort in
// creation order, which is what newest-first ordering relies on.
func newEntryID(now time.Time) (ulid.ULID, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.New(ulid.Timestamp(now), entropy)
}

func keysOf(entries []Entry) []domain.TagKey {
	keys := make([]domain.TagKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
