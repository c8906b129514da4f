package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/pkg/crypto/seal"
	"github.com/yndnr/tagurl-go/pkg/token"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyKeyStore(&cfg.KeyStore, &cfg.Security); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyDecode(&cfg.Decode); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	h := &cfg.HTTP
	if h.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if h.Param == "" {
		return errors.New("server.http.param is required")
	}
	if (h.TLSCertFile == "") != (h.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{h.TLSCertFile, h.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http: %w", err)
		}
	}
	if h.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	if h.RateLimit > 0 && h.RateBurst < 1 {
		return errors.New("server.http.rate_burst must be at least 1")
	}
	for _, entry := range h.AdminAllowList {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("server.http.admin_allow_list: invalid entry %q", entry)
		}
	}
	return nil
}

func verifyKeyStore(cfg *KeyStoreSection, sec *SecuritySection) error {
	switch cfg.Backend {
	case BackendStatic:
		if len(cfg.Keys) == 0 {
			return errors.New("keystore.keys is required for the static backend")
		}
		if _, err := cfg.StaticTable(); err != nil {
			return err
		}
	case BackendFile:
		if cfg.File == "" {
			return errors.New("keystore.file is required for the file backend")
		}
	case BackendBadger:
		if _, err := sec.MasterKeyBytes(); err != nil {
			return err
		}
		if sec.MasterKey == "" && sec.Passphrase == "" {
			return errors.New("security.master_key or security.passphrase is required for the badger backend")
		}
		if sec.MasterKey != "" && sec.Passphrase != "" {
			return errors.New("security.master_key and security.passphrase are mutually exclusive")
		}
		if sec.Passphrase != "" && len(sec.Passphrase) < seal.MinPassphraseLength {
			return fmt.Errorf("security.passphrase must be at least %d characters", seal.MinPassphraseLength)
		}
	default:
		return fmt.Errorf("keystore.backend %q is not one of static, file, badger", cfg.Backend)
	}

	switch seal.Algorithm(sec.Cipher) {
	case "", seal.AESGCM, seal.ChaCha20:
	default:
		return fmt.Errorf("security.cipher %q is not one of aes-gcm, chacha20-poly1305", sec.Cipher)
	}
	if strings.HasPrefix(sec.AdminToken, token.HashPrefix) && !token.IsHash(sec.AdminToken) {
		return errors.New("security.admin_token: malformed sha256 digest")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.GCInterval < 0 {
		return errors.New("storage.gc_interval must not be negative")
	}
	if cfg.InMemory {
		return nil
	}
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	return nil
}

func verifyDecode(cfg *DecodeSection) error {
	if _, err := payload.ParserByName(cfg.Payload); err != nil {
		return fmt.Errorf("decode.payload: %w", err)
	}
	if cfg.Parallelism < 0 {
		return errors.New("decode.parallelism must not be negative")
	}
	if cfg.ReplayTTL < 0 {
		return errors.New("decode.replay_ttl must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

// StaticTable parses the inline keys, preserving their order per tag.
func (k *KeyStoreSection) StaticTable() (map[domain.TagID][]domain.TagKey, error) {
	table := make(map[domain.TagID][]domain.TagKey)
	for i, sk := range k.Keys {
		tagID, err := domain.ParseTagID(sk.TagID)
		if err != nil {
			return nil, fmt.Errorf("keystore.keys[%d].tag_id: %w", i, err)
		}
		key, err := domain.ParseTagKey(sk.Key)
		if err != nil {
			return nil, fmt.Errorf("keystore.keys[%d].key: %w", i, err)
		}
		table[tagID] = append(table[tagID], key)
	}
	return table, nil
}

// MasterKeyBytes decodes security.master_key. It returns nil when unset.
func (s *SecuritySection) MasterKeyBytes() ([]byte, error) {
	if s.MasterKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(strings.TrimSpace(s.MasterKey))
	if err != nil {
		return nil, fmt.Errorf("security.master_key: invalid hex: %w", err)
	}
	if len(key) < seal.MinKeyLength {
		return nil, fmt.Errorf("security.master_key must be at least %d bytes", seal.MinKeyLength)
	}
	return key, nil
}
