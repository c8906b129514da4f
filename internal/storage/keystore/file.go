package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/infra/confloader"
)

// tableFile is the on-disk key table:
//
//	tags:
//	  "aabbccddeeff0011":
//	    - id: 01HZX...
//	      key: "000102030405060708090a0b0c0d0e0f"
//	      label: rotated 2024-05
//	      created_at: "2024-05-01T00:00:00Z"
//
// Entries are listed newest first.
type tableFile struct {
	Tags map[string][]tableEntry `yaml:"tags"`
}

type tableEntry struct {
	ID        string `yaml:"id,omitempty"`
	Key       string `yaml:"key"`
	Label     string `yaml:"label,omitempty"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// LoadTable reads a key table file.
func LoadTable(path string) (map[domain.TagID][]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// ParseTable parses key table YAML. Entries without an id get a positional
// one so they can still be removed by id.
func ParseTable(data []byte) (map[domain.TagID][]Entry, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse key table: %w", err)
	}

	table := make(map[domain.TagID][]Entry, len(tf.Tags))
	for tag, rows := range tf.Tags {
		tagID, err := domain.ParseTagID(tag)
		if err != nil {
			return nil, fmt.Errorf("key table: tag %q: %w", tag, err)
		}
		entries := make([]Entry, 0, len(rows))
		for i, row := range rows {
			key, err := domain.ParseTagKey(row.Key)
			if err != nil {
				return nil, fmt.Errorf("key table: tag %s entry %d: %w", tagID, i, err)
			}
			e := Entry{ID: row.ID, TagID: tagID, Key: key, Label: row.Label}
			if e.ID == "" {
				e.ID = staticID(i)
			}
			if row.CreatedAt != "" {
				if e.CreatedAt, err = time.Parse(time.RFC3339, row.CreatedAt); err != nil {
					return nil, fmt.Errorf("key table: tag %s entry %d: created_at: %w", tagID, i, err)
				}
			}
			entries = append(entries, e)
		}
		if len(entries) > 0 {
			table[tagID] = entries
		}
	}
	return table, nil
}

// SaveTable writes table to path atomically with owner-only permissions.
func SaveTable(path string, table map[domain.TagID][]Entry) error {
	tf := tableFile{Tags: make(map[string][]tableEntry, len(table))}
	for tagID, entries := range table {
		rows := make([]tableEntry, len(entries))
		for i, e := range entries {
			rows[i] = tableEntry{ID: e.ID, Key: e.Key.Hex(), Label: e.Label}
			if !e.CreatedAt.IsZero() {
				rows[i].CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
			}
		}
		tf.Tags[tagID.String()] = rows
	}

	data, err := yaml.Marshal(&tf)
	if err != nil {
		return fmt.Errorf("encode key table: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".keys-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FileOption configures a File store.
type FileOption func(*File)

// WithCreate creates an empty table when the file does not exist.
func WithCreate() FileOption {
	return func(f *File) {
		f.create = true
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

// WithReloadHook registers fn to be called after every reload triggered
// by a file change.
func WithReloadHook(fn func(err error)) FileOption {
	return func(f *File) {
		f.onReload = fn
	}
}

// File is a key table backed by a YAML file. Writes go through to the file;
// external edits are picked up by Reload or by Watch.
type File struct {
	path    string
	create  bool
	table   *Static
	mu      sync.Mutex // serializes writes and reloads
	watcher *confloader.Watcher
	logger  *slog.Logger
	reloads atomic.Uint64

	onReload func(err error)
}

// OpenFile loads the key table at path.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{path: path, table: NewStatic(), logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}

	if f.create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := SaveTable(path, nil); err != nil {
				return nil, fmt.Errorf("create key table: %w", err)
			}
		}
	}

	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the table file path.
func (f *File) Path() string {
	return f.path
}

// Reload re-reads the file. On error the previous table stays in effect.
func (f *File) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, err := LoadTable(f.path)
	if err != nil {
		return err
	}
	f.table.Replace(table)
	f.reloads.Add(1)
	return nil
}

// Reloads returns how many times the table has been loaded.
func (f *File) Reloads() uint64 {
	return f.reloads.Load()
}

// Watch reloads the table whenever the file changes.
func (f *File) Watch() error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(f.logger))
	if err != nil {
		return err
	}
	reload := func() {
		err := f.Reload()
		if f.onReload != nil {
			f.onReload(err)
		}
		if err != nil {
			f.logger.Warn("key table reload failed, keeping previous table",
				"path", f.path, "error", err)
			return
		}
		f.logger.Info("key table reloaded", "path", f.path, "tags", f.table.Len())
	}
	if err := w.Watch(reload, f.path); err != nil {
		w.Close()
		return err
	}
	f.watcher = w
	return nil
}

// Close stops watching.
func (f *File) Close() error {
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

// Keys returns the keys of a tag, newest first.
func (f *File) Keys(ctx context.Context, tagID domain.TagID) ([]domain.TagKey, error) {
	return f.table.Keys(ctx, tagID)
}

// List returns the entries of a tag, newest first.
func (f *File) List(ctx context.Context, tagID domain.TagID) ([]Entry, error) {
	return f.table.List(ctx, tagID)
}

// Tags returns every tag in the table, sorted.
func (f *File) Tags(ctx context.Context) ([]domain.TagID, error) {
	tags, _ := f.table.Tags(ctx)
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags, nil
}

// Add registers key and writes the table back.
func (f *File) Add(ctx context.Context, tagID domain.TagID, key domain.TagKey, label string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.table.Add(ctx, tagID, key, label)
	if err != nil {
		return nil, err
	}
	if err := f.save(ctx); err != nil {
		f.table.Remove(ctx, tagID, e.ID)
		return nil, err
	}
	return e, nil
}

// Remove deletes one entry and writes the table back.
func (f *File) Remove(ctx context.Context, tagID domain.TagID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	before, _ := f.table.List(ctx, tagID)
	if err := f.table.Remove(ctx, tagID, id); err != nil {
		return err
	}
	if err := f.save(ctx); err != nil {
		f.table.restore(tagID, before)
		return err
	}
	return nil
}

func (f *File) save(ctx context.Context) error {
	table := make(map[domain.TagID][]Entry)
	tags, _ := f.table.Tags(ctx)
	for _, t := range tags {
		entries, _ := f.table.List(ctx, t)
		table[t] = entries
	}
	if err := SaveTable(f.path, table); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}
