// Package handler provides the HTTP request handlers of the tag URL server.
//
//   - tag.go: tag URL verification (GET /nfc)
//   - admin.go: key table and URL issuing operations
//   - health.go: health and readiness checks
//
// Every JSON response uses the Response envelope. Errors carry the domain
// error code both in the body and in the X-Error-Code header.
package handler
