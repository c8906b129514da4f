package httpserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/codec"
	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
)

var (
	routerTag = domain.TagID{1, 2, 3, 4, 5, 6, 7, 8}
	routerKey = domain.TagKey{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
)

func testRouter(t *testing.T, mutate func(*RouterConfig)) http.Handler {
	t.Helper()
	store := keystore.NewStatic()
	store.Set(routerTag, routerKey)
	reg := metric.NewRegistry()

	cfg := &RouterConfig{
		Tags:        service.NewTagService(store, nil, reg, nil),
		Keys:        store,
		Metrics:     reg,
		Logger:      discardLogger(),
		AdminToken:  "admin-token",
		RateLimiter: NewRateLimiter(100, 100, reg),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewRouter(cfg)
}

func serve(h http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	h := testRouter(t, nil)
	token, err := codec.Encode(domain.Reading{TagID: routerTag, Counter: 1}, routerKey)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name   string
		method string
		target string
		auth   string
		want   int
	}{
		{"health", "GET", "/health", "", http.StatusOK},
		{"ready", "GET", "/ready", "", http.StatusOK},
		{"metrics", "GET", "/metrics", "", http.StatusOK},
		{"decode", "GET", "/nfc?nv=" + token, "", http.StatusOK},
		{"decode wrong method", "POST", "/nfc?nv=" + token, "", http.StatusMethodNotAllowed},
		{"admin without token", "GET", "/admin/v1/tags", "", http.StatusUnauthorized},
		{"admin with token", "GET", "/admin/v1/tags", "admin-token", http.StatusOK},
		{"admin keys", "GET", "/admin/v1/tags/0102030405060708/keys", "admin-token", http.StatusOK},
		{"unknown path", "GET", "/sessions", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target, tt.auth)
			if rec.Code != tt.want {
				t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
			}
		})
	}
}

func TestNewRouter_MetricsExposition(t *testing.T) {
	h := testRouter(t, nil)
	serve(h, "GET", "/nfc?nv=AAAA", "")

	rec := serve(h, "GET", "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{"tagurl_decode_attempts_total", "tagurl_requests_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
}

func TestNewRouter_AdminDisabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RouterConfig)
	}{
		{"no token", func(c *RouterConfig) { c.AdminToken = "" }},
		{"no key store", func(c *RouterConfig) { c.Keys = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testRouter(t, tt.mutate)
			if rec := serve(h, "GET", "/admin/v1/tags", "admin-token"); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestNewRouter_AdminAllowList(t *testing.T) {
	h := testRouter(t, func(c *RouterConfig) { c.AdminAllowList = []string{"10.0.0.0/8"} })

	// httptest requests come from 192.0.2.1.
	if rec := serve(h, "GET", "/admin/v1/tags", "admin-token"); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	h := testRouter(t, func(c *RouterConfig) { c.RateLimiter = NewRateLimiter(0.001, 1, nil) })

	if rec := serve(h, "GET", "/nfc?nv=AAAA", ""); rec.Code == http.StatusTooManyRequests {
		t.Fatal("first request rate limited")
	}
	rec := serve(h, "GET", "/nfc?nv=AAAA", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Probes are not rate limited.
	if rec := serve(h, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
}

func TestNewLocalRouter(t *testing.T) {
	store := keystore.NewStatic()
	store.Set(routerTag, routerKey)
	h := NewLocalRouter(&RouterConfig{
		Tags:   service.NewTagService(store, nil, nil, nil),
		Keys:   store,
		Logger: discardLogger(),
	})

	tests := []struct {
		target string
		want   int
	}{
		{"/admin/v1/tags", http.StatusOK},
		{"/health", http.StatusOK},
		{"/nfc?nv=AAAA", http.StatusNotFound},
		{"/metrics", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := serve(h, "GET", tt.target, ""); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	srv := New(ln.Addr().String(), testRouter(t, nil), WithTimeouts(5*time.Second, 5*time.Second))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
