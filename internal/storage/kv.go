package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyNotFound = errors.New("storage: key not found")
	ErrClosed      = errors.New("storage: engine closed")
)

// KVEngine is the embedded key-value store under the persistent key store
// and the URL counters. Implementations are safe for concurrent use.
type KVEngine interface {
	// Get returns ErrKeyNotFound for a missing key.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Update runs a read-modify-write on one key in a single transaction.
	// fn receives nil when the key is absent; returning nil deletes it.
	Update(ctx context.Context, key []byte, fn func(old []byte) ([]byte, error)) error

	// Scan visits keys with prefix in key order until fn returns false.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	Stats(ctx context.Context) (*KVStats, error)
	Close() error
}

// KVStats describes the on-disk footprint and GC history.
type KVStats struct {
	LSMSize      uint64
	ValueLogSize uint64
	LastGC       time.Time
	GCRounds     uint64
}

// TotalSize is LSMSize + ValueLogSize.
func (s *KVStats) TotalSize() uint64 { return s.LSMSize + s.ValueLogSize }

// KVConfig configures the embedded engine.
type KVConfig struct {
	Dir      string // ignored when InMemory is set
	InMemory bool   // nothing survives Close
	Badger   BadgerConfig
}

// BadgerConfig holds Badger tuning. Zero values select Badger's defaults,
// except GCInterval and GCThreshold which fall back to DefaultBadgerConfig.
type BadgerConfig struct {
	GCInterval       time.Duration
	GCThreshold      float64 // discard ratio that triggers a value log rewrite
	CacheSize        int64   // block cache bytes
	ValueLogFileSize int64
	SyncWrites       bool // key changes are rare, so fsync each write by default
}

// DefaultKVConfig returns the default on-disk configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{Dir: dir, Badger: DefaultBadgerConfig()}
}

// InMemoryKVConfig returns a configuration for a throwaway store.
func InMemoryKVConfig() KVConfig {
	return KVConfig{InMemory: true, Badger: DefaultBadgerConfig()}
}

// DefaultBadgerConfig returns the defaults used by the server.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        16 << 20,
		ValueLogFileSize: 64 << 20,
		SyncWrites:       true,
	}
}
