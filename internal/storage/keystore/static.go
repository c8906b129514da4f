package keystore

import (
	"context"
	"strconv"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/pkg/cmap"
)

// Static is an in-memory key table.
type Static struct {
	tags *cmap.Map[domain.TagID, []Entry]
	now  func() time.Time
}

// NewStatic returns an empty table.
func NewStatic() *Static {
	return &Static{
		tags: cmap.New[domain.TagID, []Entry](cmap.DefaultShardCount, func(id domain.TagID) uint64 {
			return cmap.HashBytes(id[:])
		}),
		now: time.Now,
	}
}

// Keys returns the keys of a tag, newest first.
func (s *Static) Keys(_ context.Context, tagID domain.TagID) ([]domain.TagKey, error) {
	entries, _ := s.tags.Get(tagID)
	return keysOf(entries), nil
}

// List returns a copy of the entries of a tag.
func (s *Static) List(_ context.Context, tagID domain.TagID) ([]Entry, error) {
	entries, _ := s.tags.Get(tagID)
	return append([]Entry(nil), entries...), nil
}

// Tags returns every tag with at least one key.
func (s *Static) Tags(context.Context) ([]domain.TagID, error) {
	return s.tags.Keys(), nil
}

// Add registers key as the newest key of tagID.
func (s *Static) Add(_ context.Context, tagID domain.TagID, key domain.TagKey, label string) (*Entry, error) {
	now := s.now().UTC()
	id, err := newEntryID(now)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	e := Entry{ID: id.String(), TagID: tagID, Key: key, Label: label, CreatedAt: now}

	s.tags.Update(tagID, func(old []Entry, _ bool) []Entry {
		next := make([]Entry, 0, len(old)+1)
		return append(append(next, e), old...)
	})
	return &e, nil
}

// Remove deletes one entry.
func (s *Static) Remove(_ context.Context, tagID domain.TagID, id string) error {
	found := false
	s.tags.Compute(tagID, func(old []Entry, exists bool) ([]Entry, bool) {
		next := make([]Entry, 0, len(old))
		for _, e := range old {
			if e.ID == id {
				found = true
				continue
			}
			next = append(next, e)
		}
		if !found {
			return old, exists
		}
		return next, len(next) > 0
	})
	if !found {
		return domain.ErrKeyNotFound.WithDetails(id)
	}
	return nil
}

// Set replaces the keys of tagID with keys, in the given order.
func (s *Static) Set(tagID domain.TagID, keys ...domain.TagKey) {
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{ID: staticID(i), TagID: tagID, Key: k}
	}
	s.tags.Set(tagID, entries)
}

func (s *Static) restore(tagID domain.TagID, entries []Entry) {
	if len(entries) == 0 {
		s.tags.Delete(tagID)
		return
	}
	s.tags.Set(tagID, entries)
}

// Replace swaps the whole table.
func (s *Static) Replace(table map[domain.TagID][]Entry) {
	s.tags.Replace(table)
}

// Len returns the number of tags in the table.
func (s *Static) Len() int {
	return s.tags.Len()
}

func staticID(i int) string {
	return "static-" + strconv.Itoa(i)
}
