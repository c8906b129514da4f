// Package connection is the tagurl-cli client for a running tagurl-server.
//
// Client speaks the JSON envelope of the HTTP API: it verifies tag URLs
// through GET /nfc and manages keys through /admin/v1 with a bearer token.
package connection
