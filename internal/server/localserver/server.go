package localserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// SocketMode is the file mode of the socket.
const SocketMode fs.FileMode = 0o600

// ErrInUse is returned when another process is serving on the socket.
var ErrInUse = errors.New("localserver: socket is in use")

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the local management server.
type Server struct {
	path    string
	srv     *http.Server
	logger  *slog.Logger
	running atomic.Bool
}

// New creates a server for handler on the socket at path.
func New(path string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		path:   path,
		logger: slog.Default(),
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Listen creates the socket. A leftover socket nobody answers on is
// removed first; a live one yields ErrInUse.
func (s *Server) Listen() (net.Listener, error) {
	if err := removeStale(s.path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(s.path, SocketMode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod %s: %w", s.path, err)
	}
	return ln, nil
}

// ListenAndServe creates the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.running.Store(true)
	s.logger.Info("local admin socket listening", "path", s.path)

	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) || !s.running.Load() {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, waits for active requests within
// ctx and removes the socket.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	err := s.srv.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("localserver: %s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrInUse, path)
	}
	return os.Remove(path)
}
