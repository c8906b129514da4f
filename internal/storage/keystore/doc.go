// Package keystore implements the key lookup used by the decoder.
//
// Three stores are provided:
//
//   - Static: an in-memory table, safe for concurrent use
//   - File: a YAML key table loaded with koanf and reloaded on change
//   - Persistent: a Badger-backed table with keys sealed at rest
//
// Every store returns the keys of a tag newest first, so the key most
// likely to match is tried first during rotation. Package keystoretest adds
// an all-zero key store for tests.
package keystore
