package ratelimiter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/statestore"
)

// DefaultStateTTL bounds how long an idle tenant's record survives in the store.
// After a few minutes of idleness a fresh record is indistinguishable from the
// stored one: the window has rolled over and the burst bucket has refilled.
const DefaultStateTTL = 5 * time.Minute

// Limiter decides per tenant and per call whether a request may proceed,
// combining a burst token bucket with a fixed per-minute window.
type Limiter struct {
	store     statestore.Store
	clock     clock.Clock
	logger    *slog.Logger
	stateTTL  time.Duration
	keyPrefix string

	// Serializes read-modify-write per tenant inside this process. Across
	// processes sharing a store the update stays best-effort.
	locks sync.Map // tenant id -> *sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the logger used to report fail-open events.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithStateTTL overrides DefaultStateTTL.
func WithStateTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.stateTTL = ttl
		}
	}
}

// WithKeyPrefix overrides the "ratelimit:" store key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.keyPrefix = prefix }
}

// New creates a Limiter persisting its counters in store.
func New(store statestore.Store, opts ...Option) *Limiter {
	if store == nil {
		panic("ratelimiter: store cannot be nil")
	}

	l := &Limiter{
		store:     store,
		clock:     clock.New(),
		logger:    logger.Discard(),
		stateTTL:  DefaultStateTTL,
		keyPrefix: "ratelimit:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndConsume decides whether tenantID may issue one more request and
// consumes capacity only when it may. The returned error is non-nil only for
// invalid arguments; store failures degrade to an allowed decision.
func (l *Limiter) CheckAndConsume(ctx context.Context, tenantID string, cfg Config) (Decision, error) {
	if err := validate(tenantID, cfg); err != nil {
		return Decision{}, err
	}

	mu := l.acquire(tenantID)
	defer mu.Unlock()

	nowMs := l.clock.Now().UnixMilli()

	state, err := l.load(ctx, tenantID, nowMs, cfg)
	if err != nil {
		return l.failOpen(ctx, tenantID, nowMs, cfg, "read", err), nil
	}

	state.advance(nowMs, cfg)
	decision := state.decide(nowMs, cfg)
	if !decision.Allowed {
		return decision, nil
	}

	state.RequestCount++
	state.BurstTokens--
	state.LastRequestAt = nowMs
	decision.Remaining = state.remaining(cfg)

	if err := l.save(ctx, state, nowMs); err != nil {
		return l.failOpen(ctx, tenantID, nowMs, cfg, "write", err), nil
	}

	return decision, nil
}

// PeekStatus reports the decision a consuming call would get right now
// without mutating or persisting anything.
func (l *Limiter) PeekStatus(ctx context.Context, tenantID string, cfg Config) (Decision, error) {
	if err := validate(tenantID, cfg); err != nil {
		return Decision{}, err
	}

	nowMs := l.clock.Now().UnixMilli()

	state, err := l.load(ctx, tenantID, nowMs, cfg)
	if err != nil {
		return l.failOpen(ctx, tenantID, nowMs, cfg, "read", err), nil
	}

	state.advance(nowMs, cfg)
	return state.decide(nowMs, cfg), nil
}

// Reset drops the tenant's state; the next check starts with a full burst
// bucket and an empty window.
func (l *Limiter) Reset(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}

	mu := l.acquire(tenantID)
	defer mu.Unlock()

	if err := l.store.Delete(ctx, l.key(tenantID)); err != nil {
		return err
	}
	l.locks.Delete(tenantID)
	return nil
}

// CleanupExpired sweeps stale records on stores without native expiry and is
// a no-op otherwise.
func (l *Limiter) CleanupExpired(ctx context.Context) error {
	sweeper, ok := l.store.(statestore.Sweeper)
	if !ok {
		return nil
	}
	removed, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		l.logger.DebugContext(ctx, "swept expired state", logger.Component("ratelimiter"), slog.Int("removed", removed))
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, tenantID string, nowMs int64, cfg Config) (*State, error) {
	raw, err := l.store.Get(ctx, l.key(tenantID))
	if errors.Is(err, statestore.ErrNotFound) {
		return newState(tenantID, nowMs, cfg), nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		l.logger.WarnContext(ctx, "discarding corrupt rate limit state",
			logger.Component("ratelimiter"),
			logger.TenantID(tenantID),
			logger.Error(err),
		)
		return newState(tenantID, nowMs, cfg), nil
	}
	state.TenantID = tenantID
	return &state, nil
}

func (l *Limiter) save(ctx context.Context, state *State, nowMs int64) error {
	state.TTL = nowMs/1000 + int64(l.stateTTL/time.Second)
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, l.key(state.TenantID), raw, l.stateTTL)
}

// failOpen lets traffic through when the store cannot be used. The external
// API's own throttling remains the backstop.
func (l *Limiter) failOpen(ctx context.Context, tenantID string, nowMs int64, cfg Config, op string, err error) Decision {
	l.logger.WarnContext(ctx, "rate limit store unavailable, failing open",
		logger.Component("ratelimiter"),
		logger.TenantID(tenantID),
		slog.String("op", op),
		logger.Error(err),
	)
	return Decision{
		Allowed:   true,
		Remaining: cfg.RequestsPerMinute,
		Limit:     cfg.RequestsPerMinute,
		ResetTime: (nowMs/windowMs + 1) * windowMs / 1000,
	}
}

func (l *Limiter) key(tenantID string) string {
	return l.keyPrefix + tenantID
}

// acquire locks the tenant's current mutex. Reset drops the mutex from the
// map, so a caller that waited on a dropped one retries with the new entry.
func (l *Limiter) acquire(tenantID string) *sync.Mutex {
	for {
		v, _ := l.locks.LoadOrStore(tenantID, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		if cur, ok := l.locks.Load(tenantID); ok && cur.(*sync.Mutex) == mu {
			return mu
		}
		mu.Unlock()
	}
}

// Tracked reports how many tenants currently hold a lock entry.
func (l *Limiter) Tracked() int {
	n := 0
	l.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func validate(tenantID string, cfg Config) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	return cfg.Validate()
}
