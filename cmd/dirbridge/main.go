// Command dirbridge runs the directory pipeline's admin daemon: it loads
// tenant configurations, keeps rate limit and token state, and serves the
// operator API with health probes and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/dirbridge/pkg/admin"
	"github.com/dmitrymomot/dirbridge/pkg/audit"
	"github.com/dmitrymomot/dirbridge/pkg/config"
	"github.com/dmitrymomot/dirbridge/pkg/directory"
	"github.com/dmitrymomot/dirbridge/pkg/executor"
	"github.com/dmitrymomot/dirbridge/pkg/httpserver"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/metering"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/redis"
	"github.com/dmitrymomot/dirbridge/pkg/requestid"
	"github.com/dmitrymomot/dirbridge/pkg/secrets"
	"github.com/dmitrymomot/dirbridge/pkg/statestore"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

func main() {
	var cfg appConfig
	if err := config.Load(&cfg, config.WithPrefix("DIRBRIDGE_")); err != nil {
		slog.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dirbridge stopped", logger.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "dirbridge"),
		logger.WithContextExtractors(
			tenant.LoggerExtractor(),
			directory.LoggerExtractor(),
			requestid.LoggerExtractor(),
		),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	configs, err := tenant.LoadFile(cfg.TenantsFile)
	if err != nil {
		return err
	}
	registry, err := tenant.NewRegistry(configs...)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "tenants loaded", slog.Int("count", registry.Len()), slog.String("file", cfg.TenantsFile))

	store, checks, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var tokenOpts []tokens.Option
	if cfg.TokenKey != "" {
		key, err := secrets.ParseKey(cfg.TokenKey)
		if err != nil {
			return err
		}
		sealer, err := secrets.NewSealer(key)
		if err != nil {
			return err
		}
		tokenOpts = append(tokenOpts, tokens.WithSealer(sealer))
	} else {
		log.WarnContext(ctx, "token encryption key not set, tokens are stored unencrypted")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	meter, err := metering.NewPrometheusSink(reg)
	if err != nil {
		return err
	}

	auditSink := audit.NewAsyncSink(audit.NewSlogSink(log.With(logger.Component("audit"))), audit.AsyncOptions{
		BufferSize:   cfg.AuditBufferSize,
		BatchSize:    cfg.AuditBatchSize,
		BatchTimeout: cfg.AuditBatchTimeout,
		Logger:       log,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditSink.Close(ctx); err != nil {
			log.Error("audit sink did not drain", logger.Error(err))
		}
	}()

	limiter := ratelimiter.New(store, ratelimiter.WithLogger(log))
	tm := tokens.NewManager(store, append(tokenOpts, tokens.WithLogger(log))...)
	exec := executor.New(limiter, tm,
		executor.WithLogger(log),
		executor.WithAuditSink(auditSink),
		executor.WithMeteringSink(meter),
		executor.WithUserAgent(cfg.UserAgent),
	)
	defer exec.Close()

	svc := directory.New(registry, exec, limiter, tm, directory.WithLogger(log))

	go sweep(ctx, svc, cfg.CleanupInterval, log)
	go reloadOnHangup(ctx, cfg.TenantsFile, registry, limiter, meter, log)

	router := admin.NewRouter(svc, registry,
		admin.WithLogger(log),
		admin.WithMetrics(reg),
		admin.WithReadinessChecks(cfg.Admin.ReadinessTimeout, checks...),
	)
	srv := httpserver.NewFromConfig(cfg.Admin, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}

// openStore returns the shared state store, its readiness checks and a
// release function.
func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (statestore.Store, []httpserver.Check, func(), error) {
	if cfg.StateBackend == backendRedis {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		log.InfoContext(ctx, "state backend ready", slog.String("backend", backendRedis))
		store := statestore.NewRedisStore(client, statestore.WithKeyPrefix(cfg.Redis.KeyPrefix))
		checks := []httpserver.Check{{Name: "redis", Fn: redis.Healthcheck(client)}}
		return store, checks, func() { _ = client.Close() }, nil
	}

	log.WarnContext(ctx, "in-memory state backend: rate limits and tokens are per process and lost on restart")
	store := statestore.NewMemoryStore()
	return store, nil, func() { _ = store.Close() }, nil
}

func sweep(ctx context.Context, svc *directory.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.CleanupExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WarnContext(ctx, "state cleanup failed", logger.Error(err))
			}
		}
	}
}

// reloadOnHangup replaces the tenant set from file on SIGHUP. A file that
// fails to parse or validate leaves the current set untouched.
func reloadOnHangup(ctx context.Context, path string, registry *tenant.Registry, limiter *ratelimiter.Limiter, meter *metering.PrometheusSink, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		configs, err := tenant.LoadFile(path)
		if err == nil {
			before := registry.IDs()
			if err = registry.Replace(configs...); err == nil {
				after := registry.IDs()
				for _, id := range before {
					if slices.Contains(after, id) {
						continue
					}
					meter.Forget(id)
					if err := limiter.Reset(ctx, id); err != nil {
						log.WarnContext(ctx, "dropping rate limit state failed", logger.TenantID(id), logger.Error(err))
					}
				}
				log.InfoContext(ctx, "tenants reloaded", slog.Int("count", len(after)))
				continue
			}
		}
		log.ErrorContext(ctx, "tenant reload failed, keeping current configuration", logger.Error(err))
	}
}
