package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/dirbridge/pkg/httpserver"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/requestid"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
)

// Directory is the administrative surface the router exposes.
// *directory.Service implements it.
type Directory interface {
	Tenant(tenantID string) (tenant.Config, error)
	Tenants() []string
	UpdateTenantConfig(ctx context.Context, cfg tenant.Config) error
	GetRateLimitStatus(ctx context.Context, tenantID string) (ratelimiter.Decision, error)
	ResetRateLimit(ctx context.Context, tenantID string) error
	ValidateAuth(ctx context.Context, tenantID string) (bool, error)
	RevokeAccess(ctx context.Context, tenantID string) error
	AuthCodeURL(tenantID, state string) (string, error)
	ExchangeAuthorizationCode(ctx context.Context, tenantID, code string) error
}

type options struct {
	logger           *slog.Logger
	gatherer         prometheus.Gatherer
	checks           []httpserver.Check
	readinessTimeout time.Duration
}

// Option configures the router.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

// WithReadinessChecks adds dependencies probed by GET /health/ready.
func WithReadinessChecks(timeout time.Duration, checks ...httpserver.Check) Option {
	return func(o *options) {
		o.readinessTimeout = timeout
		o.checks = append(o.checks, checks...)
	}
}

type handler struct {
	dir Directory
	log *slog.Logger
}

// NewRouter builds the admin HTTP API. Tenant-scoped routes answer 404 for
// tenants missing from registry.
func NewRouter(dir Directory, registry *tenant.Registry, opts ...Option) http.Handler {
	if dir == nil || registry == nil {
		panic("admin: directory and registry are required")
	}
	o := &options{logger: logger.Discard(), readinessTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	h := &handler{dir: dir, log: o.logger}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(accessLog(o.logger))
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.log, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.log, errMethodNotAllowed)
	})

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(o.logger, o.readinessTimeout, o.checks...))
	if o.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", h.listTenants)

		r.Route("/{tenantID}", func(r chi.Router) {
			r.Put("/", h.putTenant)

			r.Group(func(r chi.Router) {
				r.Use(tenant.Middleware(registry,
					tenant.URLParamResolver("tenantID"),
					tenant.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
						writeError(w, r, h.log, err)
					}),
				))

				r.Get("/", h.getTenant)
				r.Get("/rate-limit", h.getRateLimit)
				r.Delete("/rate-limit", h.resetRateLimit)
				r.Get("/auth", h.getAuth)
				r.Delete("/auth", h.revokeAuth)
				r.Get("/auth/url", h.authURL)
				r.Post("/auth/code", h.exchangeCode)
			})
		})
	})

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "admin request",
				logger.Component("admin"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				logger.StatusCode(status),
				logger.Duration(time.Since(started)),
			)
		})
	}
}
