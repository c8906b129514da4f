package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/server/httpserver/handler"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Tags decodes and issues tag URLs. Required.
	Tags *service.TagService

	// Keys is the key table for the admin API.
	Keys keystore.Store

	// Param is the query parameter holding the token.
	Param string

	// Ready backs GET /ready.
	Ready func(ctx context.Context) error

	// Metrics is served at /metrics and records request metrics. nil
	// disables both.
	Metrics *metric.Registry

	Logger *slog.Logger

	// AdminToken guards /admin/v1. The admin API is not mounted when it is
	// empty or Keys is nil.
	AdminToken string

	// AdminAllowList is the IP/CIDR allowlist for the admin API (empty = no restriction).
	AdminAllowList []string

	// RateLimiter limits GET /nfc per client. nil disables rate limiting.
	RateLimiter *RateLimiter

	// TrustProxy takes client addresses from proxy headers.
	TrustProxy bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	adminEnabled := cfg.Keys != nil && cfg.AdminToken != ""
	hcfg := handler.Config{
		Tags:   cfg.Tags,
		Param:  cfg.Param,
		Ready:  cfg.Ready,
		Logger: log,
	}
	if adminEnabled {
		hcfg.Keys = cfg.Keys
	}
	h := handler.New(hcfg)

	mux := http.NewServeMux()

	// Probes: no rate limit, no access log.
	probe := Chain(h, RequestID(), Recover(log))
	mux.Handle("GET /health", probe)
	mux.Handle("GET /ready", probe)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(log)))
	}

	mux.Handle("GET /nfc", Chain(h,
		RequestID(),
		Recover(log),
		Metrics(cfg.Metrics),
		AccessLog(log, cfg.TrustProxy),
		RateLimit(cfg.RateLimiter, cfg.TrustProxy),
	))

	if adminEnabled {
		admin := Chain(h,
			RequestID(),
			Recover(log),
			Metrics(cfg.Metrics),
			AccessLog(log, cfg.TrustProxy),
			NetworkACL(&NetworkACLConfig{
				AllowList:  cfg.AdminAllowList,
				TrustProxy: cfg.TrustProxy,
				Logger:     log,
			}),
			AdminAuth(cfg.AdminToken),
		)
		mux.Handle("/admin/v1/", admin)
	} else {
		log.Info("admin api disabled")
	}

	return mux
}

// NewLocalRouter creates the router for the local admin socket: probes and
// the admin API without token or network checks. Callers restrict access
// with the socket's file mode. cfg.AdminToken and cfg.AdminAllowList are
// ignored; Keys is required.
func NewLocalRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(handler.Config{
		Tags:   cfg.Tags,
		Keys:   cfg.Keys,
		Param:  cfg.Param,
		Ready:  cfg.Ready,
		Logger: log,
	})

	mux := http.NewServeMux()
	probe := Chain(h, RequestID(), Recover(log))
	mux.Handle("GET /health", probe)
	mux.Handle("GET /ready", probe)
	mux.Handle("/admin/v1/", Chain(h,
		RequestID(),
		Recover(log),
		AccessLog(log.With("listener", "local"), false),
	))
	return mux
}
