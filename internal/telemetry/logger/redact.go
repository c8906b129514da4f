package logger

import (
	"log/slog"
	"strings"
)

// Attribute names containing one of these are redacted when non-empty.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"master_key",
	"tag_key",
	"credential",
	"authorization",
}

// Attribute names that are redacted only on an exact match.
var sensitiveKeyNames = map[string]bool{
	"key": true,
	"nv":  true,
}

// URL query parameters whose value is a tag URL token.
var tokenParams = []string{"?nv=", "&nv="}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if looksLikeTagKey(v) {
			return slog.String(a.Key, redactedValue)
		}
		if masked, ok := maskTokenParam(v); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// looksLikeTagKey reports whether v is 32 hex digits, the rendering of a
// 16-byte tag key.
func looksLikeTagKey(v string) bool {
	if len(v) != 32 {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// maskTokenParam masks the nv= value of a URL or query string.
func maskTokenParam(v string) (string, bool) {
	for _, p := range tokenParams {
		i := strings.Index(v, p)
		if i < 0 {
			continue
		}
		start := i + len(p)
		end := strings.IndexAny(v[start:], "&# ")
		if end < 0 {
			end = len(v) - start
		}
		return v[:start] + maskValue(v[start:start+end]) + v[start+end:], true
	}
	return v, false
}

// maskValue keeps the first and last three characters of long values.
func maskValue(value string) string {
	if len(value) <= 12 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString masks a value before it is logged outside an attribute.
func RedactString(value string) string {
	if looksLikeTagKey(value) {
		return redactedValue
	}
	if masked, ok := maskTokenParam(value); ok {
		return masked
	}
	return value
}

// RedactToken masks a bare tag URL token.
func RedactToken(token string) string {
	return maskValue(token)
}

// IsSensitiveKey reports whether an attribute name suggests secret content.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeyNames[lower] {
		return true
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
