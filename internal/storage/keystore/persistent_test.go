package keystore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/storage"
	"github.com/yndnr/tagurl-go/pkg/crypto/seal"
)

var testMasterKey = bytes.Repeat([]byte{0x42}, 32)

func openEngine(t *testing.T, dir string) *storage.BadgerEngine {
	t.Helper()
	cfg := storage.InMemoryKVConfig()
	if dir != "" {
		cfg = storage.DefaultKVConfig(dir)
	}
	cfg.Badger.GCInterval = time.Hour
	engine, err := storage.NewBadgerEngine(cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewBadgerEngine: %v", err)
	}
	return engine
}

func openPersistent(t *testing.T, kv storage.KVEngine, cfg PersistentConfig) *Persistent {
	t.Helper()
	p, err := OpenPersistent(context.Background(), kv, cfg)
	if err != nil {
		t.Fatalf("OpenPersistent: %v", err)
	}
	return p
}

func TestPersistent_AddListRemove(t *testing.T) {
	ctx := context.Background()
	kv := openEngine(t, "")
	defer kv.Close()
	p := openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey, Algorithm: seal.AESGCM})

	tag := mustTag(t, "0102030405060708")
	other := mustTag(t, "0102030405060709")

	first, err := p.Add(ctx, tag, keyOf(1), "first")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := p.Add(ctx, tag, keyOf(2), "second")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := p.Add(ctx, other, keyOf(3), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := p.List(ctx, tag)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() len = %d, want 2", len(entries))
	}
	if entries[0].ID != second.ID || entries[1].ID != first.ID {
		t.Errorf("List() order = %s, %s; want newest first", entries[0].ID, entries[1].ID)
	}
	if entries[0].Key != keyOf(2) || entries[0].Label != "second" {
		t.Errorf("entries[0] = %+v", entries[0])
	}

	tags, err := p.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != tag || tags[1] != other {
		t.Errorf("Tags() = %v", tags)
	}

	if err := p.Remove(ctx, tag, second.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	keys, _ := p.Keys(ctx, tag)
	if len(keys) != 1 || keys[0] != keyOf(1) {
		t.Errorf("Keys() after remove = %d keys", len(keys))
	}

	for _, id := range []string{second.ID, "not-a-ulid"} {
		if err := p.Remove(ctx, tag, id); !errors.Is(err, domain.ErrKeyNotFound) {
			t.Errorf("Remove(%q) error = %v, want ErrKeyNotFound", id, err)
		}
	}
}

func TestPersistent_ValuesAreSealed(t *testing.T) {
	ctx := context.Background()
	kv := openEngine(t, "")
	defer kv.Close()
	p := openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey, Algorithm: seal.ChaCha20})

	tag := mustTag(t, "0102030405060708")
	key := keyOf(0xab)
	if _, err := p.Add(ctx, tag, key, "label"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	kv.Scan(ctx, []byte(entryPrefix), func(_, v []byte) bool {
		if bytes.Contains(v, key[:]) || bytes.Contains(v, []byte("label")) {
			t.Error("entry stored in plaintext")
		}
		return true
	})
}

func TestPersistent_EntryBoundToKey(t *testing.T) {
	ctx := context.Background()
	kv := openEngine(t, "")
	defer kv.Close()
	p := openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey})

	tag := mustTag(t, "0102030405060708")
	e, err := p.Add(ctx, tag, keyOf(1), "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Moving a sealed value under another tag must not yield a usable key.
	var sealed []byte
	kv.Scan(ctx, tagPrefix(tag), func(_, v []byte) bool {
		sealed = v
		return false
	})
	other := mustTag(t, "0807060504030201")
	uid := mustULID(t, e.ID)
	if err := kv.Set(ctx, entryKey(other, uid), sealed); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Keys(ctx, other); !errors.Is(err, domain.ErrKeyLookupFailed) {
		t.Errorf("Keys(moved entry) error = %v, want ErrKeyLookupFailed", err)
	}
}

func TestPersistent_WrongMasterKey(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	kv := openEngine(t, dir)
	p := openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey})
	if _, err := p.Add(ctx, mustTag(t, "0102030405060708"), keyOf(1), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	kv.Close()

	kv = openEngine(t, dir)
	defer kv.Close()
	_, err := OpenPersistent(ctx, kv, PersistentConfig{MasterKey: bytes.Repeat([]byte{0x43}, 32)})
	if !errors.Is(err, ErrWrongMasterKey) {
		t.Errorf("OpenPersistent(wrong key) error = %v, want ErrWrongMasterKey", err)
	}

	p = openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey})
	keys, err := p.Keys(ctx, mustTag(t, "0102030405060708"))
	if err != nil || len(keys) != 1 {
		t.Errorf("Keys() after reopen = %d, %v", len(keys), err)
	}
}

func TestPersistent_Passphrase(t *testing.T) {
	ctx := context.Background()
	kv := openEngine(t, "")
	defer kv.Close()

	p := openPersistent(t, kv, PersistentConfig{Passphrase: []byte("correct horse battery")})
	tag := mustTag(t, "0102030405060708")
	if _, err := p.Add(ctx, tag, keyOf(5), ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	salt, err := kv.Get(ctx, []byte(metaSaltKey))
	if err != nil || len(salt) != seal.SaltLength {
		t.Fatalf("salt = %x, %v", salt, err)
	}

	again := openPersistent(t, kv, PersistentConfig{Passphrase: []byte("correct horse battery")})
	if keys, _ := again.Keys(ctx, tag); len(keys) != 1 || keys[0] != keyOf(5) {
		t.Error("reopened store does not return the stored key")
	}

	if _, err := OpenPersistent(ctx, kv, PersistentConfig{Passphrase: []byte("wrong passphrase")}); !errors.Is(err, ErrWrongMasterKey) {
		t.Errorf("wrong passphrase error = %v, want ErrWrongMasterKey", err)
	}
}

func TestOpenPersistent_ConfigErrors(t *testing.T) {
	kv := openEngine(t, "")
	defer kv.Close()

	tests := []struct {
		name string
		cfg  PersistentConfig
	}{
		{"neither", PersistentConfig{}},
		{"both", PersistentConfig{MasterKey: testMasterKey, Passphrase: []byte("passphrase")}},
		{"short key", PersistentConfig{MasterKey: []byte("short")}},
		{"weak passphrase", PersistentConfig{Passphrase: []byte("abc")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenPersistent(context.Background(), kv, tt.cfg); err == nil {
				t.Error("OpenPersistent() error = nil, want error")
			}
		})
	}
}

func mustULID(t *testing.T, s string) ulid.ULID {
	t.Helper()
	id, err := ulid.ParseStrict(s)
	if err != nil {
		t.Fatalf("ParseStrict(%q): %v", s, err)
	}
	return id
}

// pausingKV holds Scan after it has read the data until release is closed.
type pausingKV struct {
	storage.KVEngine
	scanned chan struct{}
	release chan struct{}
}

func (k *pausingKV) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	err := k.KVEngine.Scan(ctx, prefix, fn)
	if k.scanned != nil {
		close(k.scanned)
		<-k.release
		k.scanned = nil
	}
	return err
}

func TestPersistent_AddDuringListIsNotHidden(t *testing.T) {
	ctx := context.Background()
	engine := openEngine(t, "")
	defer engine.Close()
	kv := &pausingKV{KVEngine: engine}
	p := openPersistent(t, kv, PersistentConfig{MasterKey: testMasterKey, Algorithm: seal.AESGCM})
	tag := mustTag(t, "0102030405060708")

	kv.scanned = make(chan struct{})
	kv.release = make(chan struct{})
	scanned := kv.scanned
	done := make(chan error, 1)
	go func() {
		_, err := p.Keys(ctx, tag)
		done <- err
	}()

	<-scanned
	if _, err := p.Add(ctx, tag, keyOf(7), "rotated"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	close(kv.release)
	if err := <-done; err != nil {
		t.Fatalf("Keys: %v", err)
	}

	keys, err := p.Keys(ctx, tag)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != keyOf(7) {
		t.Fatalf("Keys() after Add = %d keys, want the added key", len(keys))
	}
}
