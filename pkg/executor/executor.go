package executor

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dmitrymomot/dirbridge/pkg/audit"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/metering"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 10 << 20

// RateLimiter admits or rejects an operation before any network I/O.
type RateLimiter interface {
	CheckAndConsume(ctx context.Context, tenantID string, cfg ratelimiter.Config) (ratelimiter.Decision, error)
}

// TokenProvider supplies the bearer credential for a tenant.
type TokenProvider interface {
	GetValidToken(ctx context.Context, tenantID string, creds tokens.Credentials) (*tokens.TokenSet, error)
}

// Executor is the single place outbound directory API calls are made.
type Executor struct {
	limiter   RateLimiter
	tokens    TokenProvider
	audit     audit.Sink
	meter     metering.Sink
	clock     clock.Clock
	logger    *slog.Logger
	transport http.RoundTripper
	userAgent string
	maxBody   int64

	// *http.Transport per dial timeout
	transports sync.Map
}

// Option configures an Executor.
type Option func(*Executor)

func WithClock(c clock.Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAuditSink sets where terminal outcomes are audited.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Executor) {
		if s != nil {
			e.audit = s
		}
	}
}

// WithMeteringSink sets where usage is reported.
func WithMeteringSink(s metering.Sink) Option {
	return func(e *Executor) {
		if s != nil {
			e.meter = s
		}
	}
}

// WithTransport replaces the per-tenant transports with rt. Connection
// timeouts from tenant configuration are then not applied.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Executor) { e.transport = rt }
}

func WithUserAgent(ua string) Option {
	return func(e *Executor) { e.userAgent = ua }
}

// WithMaxResponseBytes caps response bodies. Larger bodies fail as validation errors.
func WithMaxResponseBytes(n int64) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxBody = n
		}
	}
}

// New creates an Executor.
func New(limiter RateLimiter, tp TokenProvider, opts ...Option) *Executor {
	if limiter == nil {
		panic("executor: rate limiter cannot be nil")
	}
	if tp == nil {
		panic("executor: token provider cannot be nil")
	}

	e := &Executor{
		limiter:   limiter,
		tokens:    tp,
		audit:     audit.Discard,
		meter:     metering.Discard,
		clock:     clock.New(),
		logger:    logger.Discard(),
		userAgent: "dirbridge",
		maxBody:   DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) client(dialTimeout time.Duration) *http.Client {
	if e.transport != nil {
		return &http.Client{Transport: e.transport}
	}
	if t, ok := e.transports.Load(dialTimeout); ok {
		return &http.Client{Transport: t.(*http.Transport)}
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	if dialTimeout > 0 {
		t.DialContext = (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = dialTimeout
	}
	actual, _ := e.transports.LoadOrStore(dialTimeout, t)
	return &http.Client{Transport: actual.(*http.Transport)}
}

// Close releases idle connections held by the cached transports.
func (e *Executor) Close() {
	e.transports.Range(func(_, v any) bool {
		v.(*http.Transport).CloseIdleConnections()
		return true
	})
}
