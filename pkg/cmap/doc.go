// Package cmap provides a concurrent map split into shards chosen by a
// murmur3 key hash, one RWMutex per shard.
//
// Usage:
//
//	m := cmap.New[domain.TagID, []domain.TagKey](16, func(id domain.TagID) uint64 {
//		return cmap.HashBytes(id[:])
//	})
//	m.Set(id, keys)
//	keys, ok := m.Get(id)
//
// Iteration and Len visit shards one at a time and are not a consistent
// snapshot of the whole map.
package cmap
