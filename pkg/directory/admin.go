package directory

import (
	"context"

	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
)

// ResetRateLimit clears the tenant's rate limit state.
func (s *Service) ResetRateLimit(ctx context.Context, tenantID string) error {
	if _, err := s.registry.Get(tenantID); err != nil {
		return err
	}
	if err := s.limiter.Reset(ctx, tenantID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "rate limit reset", logger.Component("directory"), logger.TenantID(tenantID))
	return nil
}

// GetRateLimitStatus reports the tenant's remaining quota without consuming it.
func (s *Service) GetRateLimitStatus(ctx context.Context, tenantID string) (ratelimiter.Decision, error) {
	cfg, err := s.registry.Get(tenantID)
	if err != nil {
		return ratelimiter.Decision{}, err
	}
	return s.limiter.PeekStatus(ctx, tenantID, cfg.RateLimits)
}

// RevokeAccess deletes the tenant's cached tokens. Operations fail with an
// auth error until the tenant is authorized again.
func (s *Service) RevokeAccess(ctx context.Context, tenantID string) error {
	if _, err := s.registry.Get(tenantID); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, tenantID)
}

// ValidateAuth reports whether the tenant holds a usable credential.
func (s *Service) ValidateAuth(ctx context.Context, tenantID string) (bool, error) {
	if _, err := s.registry.Get(tenantID); err != nil {
		return false, err
	}
	return s.tokens.ValidateAuth(ctx, tenantID), nil
}

// AuthCodeURL builds the consent URL that starts the tenant's authorization.
func (s *Service) AuthCodeURL(tenantID, state string) (string, error) {
	cfg, err := s.registry.Get(tenantID)
	if err != nil {
		return "", err
	}
	return s.tokens.AuthCodeURL(cfg.OAuth, state), nil
}

// ExchangeAuthorizationCode completes the tenant's authorization with the
// code returned to the redirect URL.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, tenantID, code string) error {
	cfg, err := s.registry.Get(tenantID)
	if err != nil {
		return err
	}
	_, err = s.tokens.ExchangeAuthorizationCode(ctx, tenantID, code, cfg.OAuth)
	return err
}

// UpdateTenantConfig adds or replaces a tenant configuration as a whole.
// Operations already running keep the configuration they started with.
func (s *Service) UpdateTenantConfig(ctx context.Context, cfg tenant.Config) error {
	if err := s.registry.Put(cfg); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tenant configuration updated", logger.Component("directory"), logger.TenantID(cfg.ID))
	return nil
}

// CleanupExpired sweeps expired state on stores without native expiry.
func (s *Service) CleanupExpired(ctx context.Context) error {
	return s.limiter.CleanupExpired(ctx)
}
