package config

import (
	"github.com/yndnr/tagurl-go/internal/core/codec"
)

// CLIConfig is the configuration for tagurl-cli.
type CLIConfig struct {
	// KeyTable is the key table file used by decode, encode and keys.
	KeyTable string `koanf:"key_table" json:"key_table"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" json:"output"`

	// BaseURL is prepended to encoded tokens.
	BaseURL string `koanf:"base_url" json:"base_url"`

	// Reader is the PC/SC reader index used by station commands.
	Reader int `koanf:"reader" json:"reader"`

	// Server and AdminToken address a running tagurl-server.
	Server     string `koanf:"server" json:"server"`
	AdminToken string `koanf:"admin_token" json:"admin_token"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		KeyTable: "tags.yaml",
		Output:   "table",
		BaseURL:  codec.DefaultBaseURL,
		Server:   "http://127.0.0.1:5080",
	}
}

// Sanitized returns a copy that is safe to print.
func (c *CLIConfig) Sanitized() *CLIConfig {
	out := *c
	if out.AdminToken != "" {
		out.AdminToken = "***"
	}
	return &out
}
