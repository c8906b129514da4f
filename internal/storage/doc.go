// Package storage provides the embedded key-value engine behind the
// persistent key store and the per-tag counters.
//
// The engine is Badger v3. It can run on disk or fully in memory, which is
// what the tests use. Values are opaque to this package; callers encrypt
// anything sensitive before it reaches the engine.
package storage
