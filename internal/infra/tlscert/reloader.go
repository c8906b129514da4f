// Package tlscert serves the HTTPS certificate and reloads it when the
// certificate or key file changes.
package tlscert

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/tagurl-go/internal/infra/confloader"
)

// DefaultDebounce is the quiet period after a file event before reloading.
// Certificate and key are usually replaced one after the other.
const DefaultDebounce = 500 * time.Millisecond

// Reloader holds the current key pair.
type Reloader struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]

	logger   *slog.Logger
	debounce time.Duration
	onReload func(err error)

	mu      sync.Mutex
	watcher *confloader.Watcher
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		r.debounce = d
	}
}

// OnReload registers fn to be called after every reload attempt triggered
// by a file change.
func OnReload(fn func(err error)) Option {
	return func(r *Reloader) {
		r.onReload = fn
	}
}

// New loads the key pair. It fails if the files cannot be loaded.
func New(certFile, keyFile string, opts ...Option) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("tlscert: initial load: %w", err)
	}
	return r, nil
}

// Reload reads the key pair from disk. On failure the previous pair stays
// in use.
func (r *Reloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
	}
	r.cert.Store(&cert)

	if cert.Leaf != nil {
		r.logger.Info("certificate loaded",
			"cert_file", r.certFile,
			"subject", cert.Leaf.Subject.String(),
			"not_after", cert.Leaf.NotAfter,
		)
	}
	return nil
}

// Watch reloads the key pair whenever one of the files changes, until Close.
func (r *Reloader) Watch() error {
	w, err := confloader.NewWatcher(
		confloader.WithWatcherLogger(r.logger),
		confloader.WithDebounce(r.debounce),
	)
	if err != nil {
		return fmt.Errorf("tlscert: create watcher: %w", err)
	}
	if err := w.Watch(r.reloadChanged, r.certFile, r.keyFile); err != nil {
		w.Close()
		return fmt.Errorf("tlscert: watch: %w", err)
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

func (r *Reloader) reloadChanged() {
	err := r.Reload()
	if err != nil {
		r.logger.Error("certificate reload failed", "error", err, "cert_file", r.certFile, "key_file", r.keyFile)
	}
	if r.onReload != nil {
		r.onReload(err)
	}
}

// Close stops watching.
func (r *Reloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	r.watcher = nil
	return err
}

// Certificate returns the current key pair.
func (r *Reloader) Certificate() *tls.Certificate {
	return r.cert.Load()
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.cert.Load(), nil
}

// TLSConfig returns a server configuration that always presents the
// current key pair.
func (r *Reloader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: r.GetCertificate,
	}
}
