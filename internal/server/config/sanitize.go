package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Security.MasterKey = maskSecret(cfg.Security.MasterKey)
	sanitized.Security.Passphrase = maskSecret(cfg.Security.Passphrase)
	sanitized.Security.AdminToken = maskSecret(cfg.Security.AdminToken)

	if len(cfg.KeyStore.Keys) > 0 {
		keys := make([]StaticKey, len(cfg.KeyStore.Keys))
		for i, k := range cfg.KeyStore.Keys {
			keys[i] = StaticKey{TagID: k.TagID, Key: maskSecret(k.Key)}
		}
		sanitized.KeyStore.Keys = keys
	}
	return &sanitized
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
	}
}
