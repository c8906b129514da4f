// Package logger builds the slog loggers used across tagurl.
//
// Loggers created by New redact tag keys, secrets and tag URL tokens, and
// pick up the request id from the context passed to the *Context methods.
// Request-scoped code calls L(ctx) to get the logger the HTTP middleware
// stored for the request.
package logger
