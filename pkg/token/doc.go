// Package token generates and verifies admin bearer tokens.
//
// A token is "tuat_" followed by 32 random bytes in base64 RawURL
// encoding. Servers may be configured with the token's digest instead of
// the token itself:
//
//	sha256:<64 hex digits>
//
// Verify compares digests in constant time, so neither the content nor the
// length of the configured secret leaks through timing.
package token
