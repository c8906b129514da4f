package cmap

import (
	"iter"
	"math/bits"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is used when New is given a non-positive count.
const DefaultShardCount = 16

// Hasher maps a key to the hash that selects its shard.
type Hasher[K comparable] func(key K) uint64

// HashBytes hashes b with murmur3.
func HashBytes(b []byte) uint64 {
	return murmur3.Sum64(b)
}

// HashString hashes s with murmur3.
func HashString(s string) uint64 {
	return murmur3.Sum64([]byte(s))
}

// Map is a concurrent map sharded by Hasher.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	mask   uint64
	hash   Hasher[K]
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with shards rounded up to a power of two.
func New[K comparable, V any](shards int, hash Hasher[K]) *Map[K, V] {
	if shards <= 0 {
		shards = DefaultShardCount
	}
	n := 1 << bits.Len(uint(shards-1))

	m := &Map[K, V]{
		shards: make([]*shard[K, V], n),
		mask:   uint64(n - 1),
		hash:   hash,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.hash(key)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value under key.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Update replaces the value under key with fn's result while holding the
// shard lock, and returns it.
func (m *Map[K, V]) Update(key K, fn func(old V, exists bool) V) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[key]
	v := fn(old, ok)
	s.items[key] = v
	return v
}

// Compute is Update that may delete: when fn returns keep == false the key
// is removed (or stays absent). fn runs under the shard lock.
func (m *Map[K, V]) Compute(key K, fn func(old V, exists bool) (v V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[key]
	v, keep := fn(old, ok)
	if keep {
		s.items[key] = v
	} else {
		delete(s.items, key)
	}
	return v, keep
}

// DeleteFunc removes every entry for which del returns true and reports
// how many were removed. del runs under the shard's write lock and must
// not call back into m.
func (m *Map[K, V]) DeleteFunc(del func(key K, value V) bool) int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if del(k, v) {
				delete(s.items, k)
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// All yields every entry. Each shard is copied before its entries are
// yielded, so the loop body may modify m.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, s := range m.shards {
			s.mu.RLock()
			keys := make([]K, 0, len(s.items))
			vals := make([]V, 0, len(s.items))
			for k, v := range s.items {
				keys = append(keys, k)
				vals = append(vals, v)
			}
			s.mu.RUnlock()

			for i := range keys {
				if !yield(keys[i], vals[i]) {
					return
				}
			}
		}
	}
}

// Keys returns all keys in no particular order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}

// Replace swaps the content for items. Each shard switches atomically;
// readers of different shards may briefly see old and new content mixed.
func (m *Map[K, V]) Replace(items map[K]V) {
	next := make([]map[K]V, len(m.shards))
	for i := range next {
		next[i] = make(map[K]V)
	}
	for k, v := range items {
		next[m.hash(k)&m.mask][k] = v
	}
	for i, s := range m.shards {
		s.mu.Lock()
		s.items = next[i]
		s.mu.Unlock()
	}
}
