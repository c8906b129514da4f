package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/yndnr/tagurl-go/internal/core/payload"
	"github.com/yndnr/tagurl-go/internal/core/service"
	"github.com/yndnr/tagurl-go/internal/infra/buildinfo"
	"github.com/yndnr/tagurl-go/internal/infra/shutdown"
	"github.com/yndnr/tagurl-go/internal/infra/tlscert"
	"github.com/yndnr/tagurl-go/internal/server/config"
	"github.com/yndnr/tagurl-go/internal/server/httpserver"
	"github.com/yndnr/tagurl-go/internal/server/localserver"
	"github.com/yndnr/tagurl-go/internal/storage"
	"github.com/yndnr/tagurl-go/internal/storage/counter"
	"github.com/yndnr/tagurl-go/internal/storage/keystore"
	"github.com/yndnr/tagurl-go/internal/telemetry/logger"
	"github.com/yndnr/tagurl-go/internal/telemetry/metric"
	"github.com/yndnr/tagurl-go/pkg/crypto/seal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		checkConfig = flag.Bool("check-config", false, "Validate the configuration and exit")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tagurl-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *checkConfig {
		fmt.Println("configuration OK")
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting tagurl-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("configuration loaded", "config", config.Sanitize(cfg))

	ctx := context.Background()
	sh := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)
	metrics := metric.NewRegistry()

	// Storage: URL counters always, keys for the badger backend.
	kv, err := storage.NewBadgerEngine(cfg.Storage.KVConfig(), log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	metrics.Registerer().MustRegister(kv.Collector(metric.Namespace))
	sh.OnShutdown(func(context.Context) error {
		log.Info("closing storage engine")
		return kv.Close()
	})

	store, closeStore, err := openKeyStore(ctx, cfg, kv, metrics, log)
	if err != nil {
		kv.Close()
		return fmt.Errorf("init key store: %w", err)
	}
	sh.OnShutdown(func(context.Context) error { return closeStore() })
	metrics.Registerer().MustRegister(metric.NewKeyStoreCollector(store, cfg.KeyStore.Backend))

	parser, err := payload.ParserByName(cfg.Decode.Payload)
	if err != nil {
		return err
	}
	tags := service.NewTagService(store, counter.New(kv), metrics, &service.TagServiceConfig{
		Parser:           parser,
		Parallelism:      cfg.Decode.Parallelism,
		ReplayProtection: cfg.Decode.ReplayProtection,
		ReplayCacheSize:  cfg.Decode.ReplayCacheSize,
		ReplayTTL:        cfg.Decode.ReplayTTL,
		BaseURL:          cfg.Decode.BaseURL,
	})

	httpCfg := cfg.Server.HTTP
	var limiter *httpserver.RateLimiter
	if httpCfg.RateLimit > 0 {
		limiter = httpserver.NewRateLimiter(httpCfg.RateLimit, httpCfg.RateBurst, metrics)
	}

	routerCfg := &httpserver.RouterConfig{
		Tags:           tags,
		Keys:           store,
		Param:          httpCfg.Param,
		Ready:          readiness(kv, store),
		Metrics:        metrics,
		Logger:         log,
		AdminToken:     cfg.Security.AdminToken,
		AdminAllowList: httpCfg.AdminAllowList,
		RateLimiter:    limiter,
		TrustProxy:     httpCfg.TrustProxy,
	}
	router := httpserver.NewRouter(routerCfg)

	opts := []httpserver.Option{httpserver.WithTimeouts(httpCfg.ReadTimeout, httpCfg.WriteTimeout)}
	if httpCfg.TLSCertFile != "" {
		certs, err := tlscert.New(httpCfg.TLSCertFile, httpCfg.TLSKeyFile, tlscert.WithLogger(log))
		if err != nil {
			return err
		}
		if err := certs.Watch(); err != nil {
			return err
		}
		sh.OnShutdown(func(context.Context) error { return certs.Close() })
		opts = append(opts, httpserver.WithTLSConfig(certs.TLSConfig()))
	}
	srv := httpserver.New(httpCfg.Addr, router, opts...)

	// Hooks run in reverse order: listeners stop before storage closes.
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})

	if path := cfg.Server.Local.Socket; path != "" {
		local := localserver.New(path, httpserver.NewLocalRouter(routerCfg), localserver.WithLogger(log))
		ln, err := local.Listen()
		if err != nil {
			return fmt.Errorf("local admin socket: %w", err)
		}
		sh.OnShutdown(func(ctx context.Context) error {
			log.Info("closing local admin socket")
			return local.Shutdown(ctx)
		})
		go func() {
			if err := local.Serve(ln); err != nil {
				log.Error("local admin socket error", "error", err)
				sh.Trigger()
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpCfg.Addr, "tls", httpCfg.TLSCertFile != "")
		err := srv.ListenAndServe()
		if err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger()
		}
		serveErr <- err
	}()

	if err := sh.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	if err := <-serveErr; err != nil {
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// openKeyStore opens the configured key store backend. The returned close
// function releases backend resources other than kv.
func openKeyStore(ctx context.Context, cfg *config.ServerConfig, kv storage.KVEngine, metrics *metric.Registry, log *slog.Logger) (keystore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.KeyStore.Backend {
	case config.BackendStatic:
		table, err := cfg.KeyStore.StaticTable()
		if err != nil {
			return nil, nil, err
		}
		static := keystore.NewStatic()
		for tagID, keys := range table {
			static.Set(tagID, keys...)
		}
		log.Info("static key store loaded", "tags", static.Len())
		return keystore.ReadOnly(static), noop, nil

	case config.BackendFile:
		f, err := keystore.OpenFile(cfg.KeyStore.File,
			keystore.WithCreate(),
			keystore.WithFileLogger(log),
			keystore.WithReloadHook(func(err error) { metrics.RecordKeyStoreReload(err == nil) }),
		)
		if err != nil {
			return nil, nil, err
		}
		if cfg.KeyStore.Watch {
			if err := f.Watch(); err != nil {
				return nil, nil, err
			}
		}
		log.Info("file key store loaded", "path", f.Path(), "watch", cfg.KeyStore.Watch)
		return f, f.Close, nil

	case config.BackendBadger:
		master, err := cfg.Security.MasterKeyBytes()
		if err != nil {
			return nil, nil, err
		}
		p, err := keystore.OpenPersistent(ctx, kv, keystore.PersistentConfig{
			MasterKey:  master,
			Passphrase: []byte(cfg.Security.Passphrase),
			Algorithm:  seal.Algorithm(cfg.Security.Cipher),
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown key store backend %q", cfg.KeyStore.Backend)
}

// readiness reports ready once both the KV engine and the key store answer.
func readiness(kv storage.KVEngine, store keystore.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := kv.Stats(ctx); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		if _, err := store.Tags(ctx); err != nil {
			return fmt.Errorf("key store: %w", err)
		}
		return nil
	}
}
