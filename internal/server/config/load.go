package config

import (
	"github.com/yndnr/tagurl-go/internal/infra/confloader"
	"github.com/yndnr/tagurl-go/internal/storage"
)

// EnvPrefix prefixes environment overrides, e.g. TAGURL_SERVER_HTTP_ADDR.
const EnvPrefix = "TAGURL_"

// Load builds a configuration from defaults, the YAML file at path (if
// any), TAGURL_* environment variables and overrides, in that order of
// precedence from lowest to highest. The result is verified.
func Load(path string, overrides map[string]any) (*ServerConfig, error) {
	cfg := Default()

	err := confloader.Load(cfg,
		confloader.File(path),
		confloader.Env(EnvPrefix),
		confloader.Map(overrides),
	)
	if err != nil {
		return nil, err
	}

	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KVConfig converts the storage section for storage.NewBadgerEngine.
func (s StorageSection) KVConfig() storage.KVConfig {
	return storage.KVConfig{
		Dir:      s.DataDir,
		InMemory: s.InMemory,
		Badger: storage.BadgerConfig{
			GCInterval:       s.GCInterval,
			GCThreshold:      s.GCThreshold,
			CacheSize:        s.CacheSize,
			ValueLogFileSize: s.ValueLogFileSize,
			SyncWrites:       s.SyncWrites,
		},
	}
}
