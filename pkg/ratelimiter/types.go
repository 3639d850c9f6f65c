package ratelimiter

import (
	"fmt"
	"time"
)

// Config holds a tenant's nominal quota.
type Config struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"` // Burst token refill rate.
	RequestsPerMinute int     `yaml:"requestsPerMinute" json:"requestsPerMinute"` // Fixed window ceiling.
	BurstLimit        int     `yaml:"burstLimit" json:"burstLimit"`               // Burst bucket capacity.
}

// Validate reports ErrInvalidConfig for non-positive limits.
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: requests per second must be positive, got %v", ErrInvalidConfig, c.RequestsPerSecond)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: requests per minute must be positive, got %d", ErrInvalidConfig, c.RequestsPerMinute)
	}
	if c.BurstLimit <= 0 {
		return fmt.Errorf("%w: burst limit must be positive, got %d", ErrInvalidConfig, c.BurstLimit)
	}
	return nil
}

// Decision is the outcome of a limiter check. It is never persisted.
type Decision struct {
	Allowed      bool  `json:"allowed"`
	Remaining    int   `json:"remaining"`
	Limit        int   `json:"limit"`
	ResetTime    int64 `json:"resetTime"` // epoch seconds at which the current window rolls over
	RetryAfterMs int64 `json:"retryAfterMs,omitempty"`
}

// RetryAfter returns how long to wait before the next attempt. Zero when allowed.
func (d Decision) RetryAfter() time.Duration {
	if d.Allowed {
		return 0
	}
	return time.Duration(d.RetryAfterMs) * time.Millisecond
}

// State is the persisted per-tenant record.
type State struct {
	TenantID      string  `json:"tenantId"`
	RequestCount  int     `json:"requestCount"`
	WindowStart   int64   `json:"windowStart"`   // window index, epoch minutes
	LastRequestAt int64   `json:"lastRequestAt"` // epoch ms of the last consuming call
	BurstTokens   float64 `json:"burstTokens"`
	TTL           int64   `json:"ttl"` // epoch seconds after which the record may be dropped
}

const windowMs = int64(time.Minute / time.Millisecond)

func newState(tenantID string, nowMs int64, cfg Config) *State {
	return &State{
		TenantID:      tenantID,
		WindowStart:   nowMs / windowMs,
		LastRequestAt: nowMs,
		BurstTokens:   float64(cfg.BurstLimit),
	}
}

// advance rolls the fixed window and refills burst tokens for the wall-clock
// time elapsed since the last consuming call. It is a pure function of the
// stored record and now, so repeated calls without a consume agree.
func (s *State) advance(nowMs int64, cfg Config) {
	if window := nowMs / windowMs; window > s.WindowStart {
		s.RequestCount = 0
		s.WindowStart = window
	}

	if elapsed := nowMs - s.LastRequestAt; elapsed > 0 {
		s.BurstTokens += float64(elapsed) / 1000 * cfg.RequestsPerSecond
	}

	s.BurstTokens = min(max(s.BurstTokens, 0), float64(cfg.BurstLimit))
	s.RequestCount = max(s.RequestCount, 0)
}

// decide evaluates the advanced state without mutating it.
func (s *State) decide(nowMs int64, cfg Config) Decision {
	d := Decision{
		Limit:     cfg.RequestsPerMinute,
		ResetTime: (s.WindowStart + 1) * windowMs / 1000,
	}

	switch {
	case s.BurstTokens < 1:
		d.RetryAfterMs = ceilDiv(1000, cfg.RequestsPerSecond)
	case s.RequestCount >= cfg.RequestsPerMinute:
		d.RetryAfterMs = max((s.WindowStart+1)*windowMs-nowMs, 1)
	default:
		d.Allowed = true
		d.Remaining = s.remaining(cfg)
	}
	return d
}

func (s *State) remaining(cfg Config) int {
	return max(min(cfg.RequestsPerMinute-s.RequestCount, int(s.BurstTokens)), 0)
}

func ceilDiv(num int64, rate float64) int64 {
	v := float64(num) / rate
	c := int64(v)
	if float64(c) < v {
		c++
	}
	return c
}
