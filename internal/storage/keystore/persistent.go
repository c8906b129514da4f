package keystore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/storage"
	"github.com/yndnr/tagurl-go/pkg/cmap"
	"github.com/yndnr/tagurl-go/pkg/crypto/seal"
)

// Key layout in the KV engine.
//
//	meta/salt                     passphrase salt (plaintext)
//	meta/check                    sealed canary, detects a wrong master key
//	tagkey/<tag id>/<entry ulid>  sealed entry record
const (
	metaSaltKey  = "meta/salt"
	metaCheckKey = "meta/check"
	entryPrefix  = "tagkey/"

	sealPurpose = "tagurl/keystore/v1"
	checkValue  = "tagurl-keystore"
)

// ErrWrongMasterKey is returned when the master key does not open the store.
var ErrWrongMasterKey = errors.New("keystore: master key does not match this store")

// PersistentConfig configures a Persistent store. Exactly one of MasterKey
// and Passphrase must be set.
type PersistentConfig struct {
	MasterKey  []byte
	Passphrase []byte
	Algorithm  seal.Algorithm
	Logger     *slog.Logger
}

// Persistent is a key table stored in the KV engine. Each entry is sealed
// with an AEAD bound to its tag id and entry id. Decrypted key lists are
// cached per tag until the tag is modified.
type Persistent struct {
	kv     storage.KVEngine
	sealer *seal.Sealer
	cache  *cmap.Map[domain.TagID, cacheSlot]
	logger *slog.Logger
	now    func() time.Time
}

// cacheSlot holds the decrypted entries of one tag. gen changes on every
// write to the tag; a List only fills the slot when gen is the one it saw
// before scanning.
type cacheSlot struct {
	gen     uint64
	entries []Entry
	filled  bool
}

type sealedRecord struct {
	Key       []byte    `json:"key"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenPersistent opens (or initializes) the key table in kv.
func OpenPersistent(ctx context.Context, kv storage.KVEngine, cfg PersistentConfig) (*Persistent, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	master, err := masterKey(ctx, kv, cfg)
	if err != nil {
		return nil, err
	}
	defer seal.Zero(master)

	sealer, err := seal.New(master, sealPurpose, cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	p := &Persistent{
		kv:     kv,
		sealer: sealer,
		cache: cmap.New[domain.TagID, cacheSlot](cmap.DefaultShardCount, func(id domain.TagID) uint64 {
			return cmap.HashBytes(id[:])
		}),
		logger: logger,
		now:    time.Now,
	}
	if err := p.verify(ctx); err != nil {
		return nil, err
	}

	logger.Info("persistent key store opened", "cipher", sealer.Algorithm())
	return p, nil
}

func masterKey(ctx context.Context, kv storage.KVEngine, cfg PersistentConfig) ([]byte, error) {
	switch {
	case len(cfg.MasterKey) > 0 && len(cfg.Passphrase) > 0:
		return nil, errors.New("keystore: set either a master key or a passphrase, not both")
	case len(cfg.MasterKey) > 0:
		if len(cfg.MasterKey) < seal.MinKeyLength {
			return nil, seal.ErrKeyTooShort
		}
		return append([]byte(nil), cfg.MasterKey...), nil
	case len(cfg.Passphrase) > 0:
		salt, err := kv.Get(ctx, []byte(metaSaltKey))
		if errors.Is(err, storage.ErrKeyNotFound) {
			if salt, err = seal.NewSalt(); err != nil {
				return nil, err
			}
			if err := kv.Set(ctx, []byte(metaSaltKey), salt); err != nil {
				return nil, fmt.Errorf("keystore: store salt: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("keystore: read salt: %w", err)
		}
		return seal.KeyFromPassphrase(cfg.Passphrase, salt)
	default:
		return nil, errors.New("keystore: a master key or passphrase is required")
	}
}

// verify checks the canary, writing it on first use.
func (p *Persistent) verify(ctx context.Context) error {
	sealed, err := p.kv.Get(ctx, []byte(metaCheckKey))
	if errors.Is(err, storage.ErrKeyNotFound) {
		sealed, err = p.sealer.Seal([]byte(checkValue), []byte(metaCheckKey))
		if err != nil {
			return err
		}
		return p.kv.Set(ctx, []byte(metaCheckKey), sealed)
	}
	if err != nil {
		return fmt.Errorf("keystore: read check value: %w", err)
	}

	plain, err := p.sealer.Open(sealed, []byte(metaCheckKey))
	if err != nil || string(plain) != checkValue {
		return ErrWrongMasterKey
	}
	return nil
}

func tagPrefix(tagID domain.TagID) []byte {
	return append([]byte(entryPrefix), append(tagID[:], '/')...)
}

func entryKey(tagID domain.TagID, id ulid.ULID) []byte {
	return append(tagPrefix(tagID), id[:]...)
}

// Keys returns the keys of a tag, newest first.
func (p *Persistent) Keys(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error) {
	entries, err := p.List(ctx, tagID)
	if err != nil {
		return nil, err
	}
	return keysOf(entries), nil
}

// List returns the entries of a tag, newest first.
func (p *Persistent) List(ctx context.Context, tagID domain.TagID) ([]Entry, error) {
	slot, _ := p.cache.Get(tagID)
	if slot.filled {
		return append([]Entry(nil), slot.entries...), nil
	}
	gen := slot.gen

	var (
		entries []Entry
		openErr error
	)
	err := p.kv.Scan(ctx, tagPrefix(tagID), func(k, v []byte) bool {
		e, err := p.open(tagID, k, v)
		if err != nil {
			openErr = err
			return false
		}
		entries = append(entries, *e)
		return true
	})
	if err != nil {
		return nil, domain.ErrKeyLookupFailed.WithCause(err)
	}
	if openErr != nil {
		return nil, domain.ErrKeyLookupFailed.WithCause(openErr)
	}

	// Scan order is oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	p.cache.Compute(tagID, func(old cacheSlot, _ bool) (cacheSlot, bool) {
		if old.gen != gen {
			return old, true
		}
		return cacheSlot{gen: gen, entries: entries, filled: true}, true
	})
	return append([]Entry(nil), entries...), nil
}

// Tags returns every tag with at least one key, in key order.
func (p *Persistent) Tags(ctx context.Context) ([]domain.TagID, error) {
	var (
		tags []domain.TagID
		last domain.TagID
		seen bool
	)
	err := p.kv.Scan(ctx, []byte(entryPrefix), func(k, _ []byte) bool {
		rest := k[len(entryPrefix):]
		if len(rest) < domain.TagIDSize {
			return true
		}
		var id domain.TagID
		copy(id[:], rest)
		if !seen || id != last {
			tags = append(tags, id)
			last, seen = id, true
		}
		return true
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return tags, nil
}

// Add seals and stores key as the newest key of tagID.
func (p *Persistent) Add(ctx context.Context, tagID domain.TagID, key domain.TagKey, label string) (*Entry, error) {
	now := p.now().UTC()
	id, err := newEntryID(now)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	rec := sealedRecord{Key: key[:], Label: label, CreatedAt: now}
	plain, err := json.Marshal(rec)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	k := entryKey(tagID, id)
	sealed, err := p.sealer.Seal(plain, k)
	seal.Zero(plain)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	if err := p.kv.Set(ctx, k, sealed); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	p.invalidate(tagID)

	p.logger.Info("tag key added", "tag_id", tagID.String(), "entry_id", id.String())
	return &Entry{ID: id.String(), TagID: tagID, Key: key, Label: label, CreatedAt: now}, nil
}

// Remove deletes one entry.
func (p *Persistent) Remove(ctx context.Context, tagID domain.TagID, id string) error {
	uid, err := ulid.ParseStrict(id)
	if err != nil {
		return domain.ErrKeyNotFound.WithDetails(id)
	}
	k := entryKey(tagID, uid)

	if _, err := p.kv.Get(ctx, k); errors.Is(err, storage.ErrKeyNotFound) {
		return domain.ErrKeyNotFound.WithDetails(id)
	} else if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if err := p.kv.Delete(ctx, k); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	p.invalidate(tagID)

	p.logger.Info("tag key removed", "tag_id", tagID.String(), "entry_id", id)
	return nil
}

func (p *Persistent) open(tagID domain.TagID, k, v []byte) (*Entry, error) {
	prefix := tagPrefix(tagID)
	if !bytes.HasPrefix(k, prefix) || len(k) != len(prefix)+len(ulid.ULID{}) {
		return nil, fmt.Errorf("keystore: malformed entry key %x", k)
	}
	var id ulid.ULID
	copy(id[:], k[len(prefix):])

	plain, err := p.sealer.Open(v, k)
	if err != nil {
		return nil, fmt.Errorf("keystore: entry %s: %w", id, err)
	}
	defer seal.Zero(plain)

	var rec sealedRecord
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("keystore: entry %s: %w", id, err)
	}
	if len(rec.Key) != domain.TagKeySize {
		return nil, fmt.Errorf("keystore: entry %s: %w", id, domain.ErrInvalidTagKey)
	}

	e := &Entry{ID: id.String(), TagID: tagID, Label: rec.Label, CreatedAt: rec.CreatedAt}
	copy(e.Key[:], rec.Key)
	seal.Zero(rec.Key)
	return e, nil
}

// invalidate drops the cached entries of tagID and moves its generation on,
// so a List that scanned before the write does not cache its result.
func (p *Persistent) invalidate(tagID domain.TagID) {
	p.cache.Compute(tagID, func(old cacheSlot, _ bool) (cacheSlot, bool) {
		return cacheSlot{gen: old.gen + 1}, true
	})
}
