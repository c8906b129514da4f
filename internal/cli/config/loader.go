package config

import (
	"os"
	"path/filepath"

	"github.com/yndnr/tagurl-go/internal/infra/confloader"
)

// EnvPrefix prefixes environment overrides, e.g. TAGURL_CLI_ADMIN__TOKEN.
const EnvPrefix = "TAGURL_CLI_"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tagurl", "cli.yaml")
}

// Load reads the configuration. An empty path selects DefaultConfigPath,
// which may be absent; an explicit path must exist.
func Load(path string) (*CLIConfig, error) {
	file := confloader.File(path)
	if path == "" {
		file = confloader.OptionalFile(DefaultConfigPath())
	}

	cfg := Default()
	if err := confloader.Load(cfg, file, confloader.Env(EnvPrefix)); err != nil {
		return nil, err
	}
	return cfg, nil
}
