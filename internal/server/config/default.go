package config

import (
	"time"

	"github.com/yndnr/tagurl-go/internal/core/codec"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultRateLimit       = 50
	DefaultRateBurst       = 100
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultDataDir = "/var/lib/tagurl-server/data"

	DefaultReplayCacheSize = 100000
	DefaultReplayTTL       = 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				Param:           codec.TokenParam,
				RateLimit:       DefaultRateLimit,
				RateBurst:       DefaultRateBurst,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		KeyStore: KeyStoreSection{
			Backend: BackendFile,
			Watch:   true,
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			GCInterval:       10 * time.Minute,
			GCThreshold:      0.5,
			CacheSize:        16 << 20,
			ValueLogFileSize: 64 << 20,
			SyncWrites:       true,
		},
		Decode: DecodeSection{
			Payload:         "raw",
			Parallelism:     1,
			ReplayCacheSize: DefaultReplayCacheSize,
			ReplayTTL:       DefaultReplayTTL,
			BaseURL:         codec.DefaultBaseURL,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
