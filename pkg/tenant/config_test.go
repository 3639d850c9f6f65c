package tenant_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	exp := tenant.RetryPolicy{MaxAttempts: 6, BackoffStrategy: tenant.BackoffExponential, BaseDelayMs: 200, MaxDelayMs: 1000}
	assert.Equal(t, 200*time.Millisecond, exp.Delay(1))
	assert.Equal(t, 400*time.Millisecond, exp.Delay(2))
	assert.Equal(t, 800*time.Millisecond, exp.Delay(3))
	assert.Equal(t, time.Second, exp.Delay(4), "capped at max delay")
	assert.Equal(t, time.Second, exp.Delay(60), "no overflow on large attempts")
	assert.Equal(t, 200*time.Millisecond, exp.Delay(0))

	lin := tenant.RetryPolicy{MaxAttempts: 3, BackoffStrategy: tenant.BackoffLinear, BaseDelayMs: 300, MaxDelayMs: 1000}
	for n := 1; n <= 5; n++ {
		assert.Equal(t, 300*time.Millisecond, lin.Delay(n))
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := tenant.Config{ID: "acme"}.WithDefaults()
	assert.Equal(t, tenant.DefaultRateLimits, cfg.RateLimits)
	assert.Equal(t, tenant.DefaultRetryPolicy, cfg.Retry)
	assert.Equal(t, tenant.DefaultTimeouts, cfg.Timeouts)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Connection())
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request())
	require.NoError(t, cfg.Validate())

	partial := tenant.Config{
		ID:    "acme",
		Retry: tenant.RetryPolicy{MaxAttempts: 5, BaseDelayMs: 8000},
	}.WithDefaults()
	assert.Equal(t, 5, partial.Retry.MaxAttempts)
	assert.Equal(t, tenant.BackoffExponential, partial.Retry.BackoffStrategy)
	assert.Equal(t, int64(8000), partial.Retry.MaxDelayMs, "max delay never falls below base")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() tenant.Config {
		return tenant.Config{
			ID:      "acme",
			BaseURL: "https://api.example.com/scim/v2",
			OAuth:   tokens.Credentials{ClientID: "c", TokenURL: "https://login.example.com/token"},
		}.WithDefaults()
	}

	tests := []struct {
		name   string
		mutate func(*tenant.Config)
		target error
	}{
		{"valid", func(*tenant.Config) {}, nil},
		{"empty id", func(c *tenant.Config) { c.ID = "" }, tenant.ErrInvalidIdentifier},
		{"id with slash", func(c *tenant.Config) { c.ID = "a/b" }, tenant.ErrInvalidIdentifier},
		{"relative base url", func(c *tenant.Config) { c.BaseURL = "/scim" }, tenant.ErrInvalidConfig},
		{"ftp base url", func(c *tenant.Config) { c.BaseURL = "ftp://x" }, tenant.ErrInvalidConfig},
		{"zero rps", func(c *tenant.Config) { c.RateLimits.RequestsPerSecond = 0 }, ratelimiter.ErrInvalidConfig},
		{"zero attempts", func(c *tenant.Config) { c.Retry.MaxAttempts = 0 }, tenant.ErrInvalidConfig},
		{"unknown strategy", func(c *tenant.Config) { c.Retry.BackoffStrategy = "fibonacci" }, tenant.ErrInvalidConfig},
		{"max below base", func(c *tenant.Config) { c.Retry.MaxDelayMs = 10 }, tenant.ErrInvalidConfig},
		{"zero request timeout", func(c *tenant.Config) { c.Timeouts.RequestTimeoutMs = 0 }, tenant.ErrInvalidConfig},
		{"oauth without token url", func(c *tenant.Config) { c.OAuth.TokenURL = "" }, tokens.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.target == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
