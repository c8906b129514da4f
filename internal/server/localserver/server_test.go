package localserver

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unixClient(path string) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
}

// start serves h on a fresh socket and returns the server and its path.
func start(t *testing.T, h http.Handler) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.sock")
	s := New(path, h, WithLogger(discard()))

	ln, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		if err := <-done; err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	})
	return s, path
}

func TestServer_ServesOnSocket(t *testing.T) {
	_, path := start(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))

	resp, err := unixClient(path).Get("http://local/ping")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("body = %q", body)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != SocketMode {
		t.Errorf("socket mode = %v, want %v", fi.Mode().Perm(), SocketMode)
	}
}

func TestServer_ShutdownRemovesSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.sock")
	s := New(path, http.NotFoundHandler(), WithLogger(discard()))

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("socket still present: %v", err)
	}
}

func TestListen_ReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.sock")

	// A listener closed without unlinking leaves a dead socket behind.
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()

	s := New(path, http.NotFoundHandler(), WithLogger(discard()))
	ln2, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen() over a stale socket: %v", err)
	}
	ln2.Close()
}

func TestListen_SocketInUse(t *testing.T) {
	_, path := start(t, http.NotFoundHandler())

	_, err := New(path, http.NotFoundHandler()).Listen()
	if !errors.Is(err, ErrInUse) {
		t.Errorf("Listen() error = %v, want ErrInUse", err)
	}
}

func TestListen_RefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.sock")
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path, http.NotFoundHandler()).Listen(); err == nil {
		t.Error("Listen() over a regular file should fail")
	}
	if b, _ := os.ReadFile(path); string(b) != "data" {
		t.Error("regular file was modified")
	}
}
