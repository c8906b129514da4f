// Package main provides the entry point for tagurl-server.
//
// tagurl-server verifies NFC smart-tag URLs: it decodes the token in the
// URL query, authenticates it against the key table of the tag and returns
// the reading. It optionally serves an admin API for key rotation and for
// issuing URLs.
//
// Usage:
//
//	tagurl-server -config /etc/tagurl/server.yaml
//	tagurl-server -config server.yaml -check-config
//	tagurl-server -version
package main
