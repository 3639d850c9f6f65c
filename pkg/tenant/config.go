package tenant

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

// BackoffStrategy selects how the delay between attempts grows.
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy bounds the attempts of one logical operation.
type RetryPolicy struct {
	MaxAttempts     int             `yaml:"maxAttempts" json:"maxAttempts"`
	BackoffStrategy BackoffStrategy `yaml:"backoffStrategy" json:"backoffStrategy"`
	BaseDelayMs     int64           `yaml:"baseDelayMs" json:"baseDelayMs"`
	MaxDelayMs      int64           `yaml:"maxDelayMs" json:"maxDelayMs"`
}

// Delay returns the pause after the n-th failed attempt (1-based).
//
//	linear:      baseDelayMs
//	exponential: min(baseDelayMs * 2^(n-1), maxDelayMs)
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	base := p.BaseDelayMs
	var ms int64
	switch p.BackoffStrategy {
	case BackoffLinear:
		ms = base
	default:
		ms = base
		for i := 1; i < n && ms < p.MaxDelayMs; i++ {
			ms *= 2
		}
	}
	if p.MaxDelayMs > 0 && ms > p.MaxDelayMs {
		ms = p.MaxDelayMs
	}
	return time.Duration(ms) * time.Millisecond
}

// MaxDelay returns MaxDelayMs as a duration.
func (p RetryPolicy) MaxDelay() time.Duration {
	return time.Duration(p.MaxDelayMs) * time.Millisecond
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be at least 1, got %d", ErrInvalidConfig, p.MaxAttempts)
	}
	switch p.BackoffStrategy {
	case BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("%w: unknown backoff strategy %q", ErrInvalidConfig, p.BackoffStrategy)
	}
	if p.BaseDelayMs < 0 || p.MaxDelayMs < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidConfig)
	}
	if p.MaxDelayMs < p.BaseDelayMs {
		return fmt.Errorf("%w: max delay %dms is below base delay %dms", ErrInvalidConfig, p.MaxDelayMs, p.BaseDelayMs)
	}
	return nil
}

// Timeouts bound the outbound HTTP calls.
type Timeouts struct {
	ConnectionTimeoutMs int64 `yaml:"connectionTimeoutMs" json:"connectionTimeoutMs"`
	RequestTimeoutMs    int64 `yaml:"requestTimeoutMs" json:"requestTimeoutMs"`
}

func (t Timeouts) Connection() time.Duration {
	return time.Duration(t.ConnectionTimeoutMs) * time.Millisecond
}

func (t Timeouts) Request() time.Duration {
	return time.Duration(t.RequestTimeoutMs) * time.Millisecond
}

// Config is everything the pipeline needs to serve one tenant. It is
// treated as an immutable value; updates replace it whole.
type Config struct {
	ID         string             `yaml:"-" json:"id"`
	BaseURL    string             `yaml:"baseUrl" json:"baseUrl"`
	OAuth      tokens.Credentials `yaml:"oauth" json:"oauth"`
	RateLimits ratelimiter.Config `yaml:"rateLimits" json:"rateLimits"`
	Retry      RetryPolicy        `yaml:"retryConfig" json:"retryConfig"`
	Timeouts   Timeouts           `yaml:"timeouts" json:"timeouts"`
}

// Defaults used for sections missing from a tenant configuration.
var (
	DefaultRateLimits = ratelimiter.Config{
		RequestsPerSecond: 10,
		RequestsPerMinute: 100,
		BurstLimit:        20,
	}
	DefaultRetryPolicy = RetryPolicy{
		MaxAttempts:     3,
		BackoffStrategy: BackoffExponential,
		BaseDelayMs:     200,
		MaxDelayMs:      5000,
	}
	DefaultTimeouts = Timeouts{
		ConnectionTimeoutMs: 5000,
		RequestTimeoutMs:    30000,
	}
)

// WithDefaults fills zero-valued sections and fields.
func (c Config) WithDefaults() Config {
	if c.RateLimits == (ratelimiter.Config{}) {
		c.RateLimits = DefaultRateLimits
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if c.Retry.BackoffStrategy == "" {
		c.Retry.BackoffStrategy = DefaultRetryPolicy.BackoffStrategy
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = DefaultRetryPolicy.BaseDelayMs
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = max(DefaultRetryPolicy.MaxDelayMs, c.Retry.BaseDelayMs)
	}

	if c.Timeouts.ConnectionTimeoutMs == 0 {
		c.Timeouts.ConnectionTimeoutMs = DefaultTimeouts.ConnectionTimeoutMs
	}
	if c.Timeouts.RequestTimeoutMs == 0 {
		c.Timeouts.RequestTimeoutMs = DefaultTimeouts.RequestTimeoutMs
	}
	return c
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidID reports whether id can be used as a tenant identifier and store key.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate checks a configuration after defaults were applied.
func (c Config) Validate() error {
	if !ValidID(c.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, c.ID)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: tenant %s: base url %q must be an absolute http(s) url", ErrInvalidConfig, c.ID, c.BaseURL)
		}
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("%w: tenant %s: %w", ErrInvalidConfig, c.ID, err)
	}
	if err := c.Retry.validate(); err != nil {
		return fmt.Errorf("tenant %s: %w", c.ID, err)
	}
	if c.Timeouts.ConnectionTimeoutMs < 0 || c.Timeouts.RequestTimeoutMs <= 0 {
		return fmt.Errorf("%w: tenant %s: timeouts must be positive", ErrInvalidConfig, c.ID)
	}
	if c.OAuth.ClientID != "" || c.OAuth.TokenURL != "" {
		if err := c.OAuth.Validate(); err != nil {
			return fmt.Errorf("%w: tenant %s: %w", ErrInvalidConfig, c.ID, err)
		}
	}
	return nil
}
