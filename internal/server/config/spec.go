package config

import "time"

// ServerConfig is the root configuration for tagurl-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	KeyStore KeyStoreSection `koanf:"keystore"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Decode   DecodeSection   `koanf:"decode"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// LocalConfig configures the local admin socket.
type LocalConfig struct {
	// Socket is the Unix socket path. Empty disables the local listener.
	Socket string `koanf:"socket"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// Param is the query parameter carrying the token.
	Param string `koanf:"param"`

	// RateLimit is requests per second per client IP (0 disables).
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// TrustProxy takes client addresses from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `koanf:"trust_proxy"`

	// AdminAllowList restricts the admin API to these IPs or CIDRs.
	AdminAllowList []string `koanf:"admin_allow_list"`
}

// Key store backends.
const (
	BackendStatic = "static"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// KeyStoreSection selects and configures the key store.
type KeyStoreSection struct {
	// Backend is static, file or badger.
	Backend string `koanf:"backend"`

	// File is the YAML key table for the file backend.
	File string `koanf:"file"`

	// Watch reloads the key table when the file changes.
	Watch bool `koanf:"watch"`

	// Keys lists the keys of the static backend. Keys of one tag are
	// listed newest first.
	Keys []StaticKey `koanf:"keys"`
}

// StaticKey is one inline key.
type StaticKey struct {
	TagID string `koanf:"tag_id"`
	Key   string `koanf:"key"`
}

// StorageSection configures the embedded KV engine (badger backend and
// URL counters).
type StorageSection struct {
	DataDir  string `koanf:"data_dir"`
	InMemory bool   `koanf:"in_memory"`

	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// SecuritySection configures secrets. Exactly one of MasterKey and
// Passphrase seals the badger key store.
type SecuritySection struct {
	// MasterKey is a hex-encoded key of at least 16 bytes.
	MasterKey string `koanf:"master_key"`

	// Passphrase is stretched with argon2id instead of a master key.
	Passphrase string `koanf:"passphrase"`

	// Cipher is aes-gcm or chacha20-poly1305 (default: by platform).
	Cipher string `koanf:"cipher"`

	// AdminToken enables the admin API for bearer requests carrying it.
	// It may be given as "sha256:<hex>" so the file never holds the token.
	AdminToken string `koanf:"admin_token"`
}

// DecodeSection configures the decoder.
type DecodeSection struct {
	// Payload is the payload parser: raw or station.
	Payload string `koanf:"payload"`

	// Parallelism is the number of candidate keys tried at once.
	Parallelism int `koanf:"parallelism"`

	ReplayProtection bool          `koanf:"replay_protection"`
	ReplayCacheSize  int           `koanf:"replay_cache_size"`
	ReplayTTL        time.Duration `koanf:"replay_ttl"`

	// BaseURL prefixes issued tokens.
	BaseURL string `koanf:"base_url"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
