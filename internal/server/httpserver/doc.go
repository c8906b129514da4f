// Package httpserver provides the HTTP/HTTPS server of the tag URL service.
//
// Routes:
//
//   - GET /nfc?nv=<token>: verify a tag URL and return its reading
//   - GET /health, GET /ready, GET /metrics
//   - /admin/v1/tags/...: key table and URL issuing, behind a bearer token
//
// Middleware order on /nfc is RequestID, Recover, Metrics, AccessLog,
// RateLimit. TLS certificates are served through a reloading watcher.
package httpserver
