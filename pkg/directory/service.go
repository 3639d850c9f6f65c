package directory

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dirbridge/pkg/executor"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

// Service exposes directory operations and the administrative surface for
// every registered tenant.
type Service struct {
	registry *tenant.Registry
	exec     *executor.Executor
	limiter  *ratelimiter.Limiter
	tokens   *tokens.Manager
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires a Service. All collaborators are required.
func New(registry *tenant.Registry, exec *executor.Executor, limiter *ratelimiter.Limiter, tm *tokens.Manager, opts ...Option) *Service {
	if registry == nil || exec == nil || limiter == nil || tm == nil {
		panic("directory: registry, executor, limiter and token manager are required")
	}
	s := &Service{
		registry: registry,
		exec:     exec,
		limiter:  limiter,
		tokens:   tm,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tenant returns the current configuration of a tenant.
func (s *Service) Tenant(tenantID string) (tenant.Config, error) {
	return s.registry.Get(tenantID)
}

// Tenants lists the registered tenant ids.
func (s *Service) Tenants() []string {
	return s.registry.IDs()
}

func call[T any](ctx context.Context, s *Service, tenantID, operation, method, path string, body any) (*executor.OperationResponse[T], error) {
	cfg, err := s.registry.Get(tenantID)
	if err != nil {
		return nil, err
	}
	runID, _ := RunIDFromContext(ctx)
	return executor.Do[T](ctx, s.exec, executor.Request{
		TenantID:  tenantID,
		Operation: operation,
		Method:    method,
		URL:       path,
		Body:      body,
		RunID:     runID,
	}, cfg)
}
