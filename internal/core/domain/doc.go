// Package domain defines the value types and error taxonomy of the tag URL
// codec.
//
// Domain values are immutable and carry no IO dependencies. This package
// contains:
//
//   - TagID: the plaintext 8-byte tag identifier used for key lookup
//   - IDm: the confidential 8-byte transponder identifier
//   - TagKey: the 128-bit symmetric key shared with a tag
//   - Reading: the fields recovered from a decoded tag URL
//   - Errors: structured error codes shared by every layer
package domain
