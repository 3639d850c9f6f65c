package ratelimiter_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/statestore"
)

var defaultQuota = ratelimiter.Config{
	RequestsPerSecond: 10,
	RequestsPerMinute: 100,
	BurstLimit:        20,
}

// windowStart is aligned on a minute boundary so window arithmetic is predictable.
var windowStart = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*ratelimiter.Limiter, *statestore.MemoryStore, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(windowStart)
	store := statestore.NewMemoryStore(statestore.WithCleanupInterval(0), statestore.WithMemoryClock(mock))
	t.Cleanup(func() { _ = store.Close() })
	return ratelimiter.New(store, ratelimiter.WithClock(mock)), store, mock
}

func consume(t *testing.T, l *ratelimiter.Limiter, tenant string, n int) []ratelimiter.Decision {
	t.Helper()
	out := make([]ratelimiter.Decision, 0, n)
	for range n {
		d, err := l.CheckAndConsume(context.Background(), tenant, defaultQuota)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func TestLimiter_BurstExhaustion(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)

	decisions := consume(t, l, "acme", 20)
	for i, d := range decisions {
		assert.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 100, d.Limit)
	}
	assert.Equal(t, 0, decisions[19].Remaining)
	assert.Equal(t, 19, decisions[0].Remaining)

	denied := consume(t, l, "acme", 1)[0]
	assert.False(t, denied.Allowed)
	assert.Equal(t, int64(100), denied.RetryAfterMs)
	assert.Equal(t, 100*time.Millisecond, denied.RetryAfter())
	assert.Equal(t, 0, denied.Remaining)
}

func TestLimiter_Refill(t *testing.T) {
	t.Parallel()
	l, _, mock := setup(t)
	ctx := context.Background()

	consume(t, l, "acme", 20)

	mock.Add(time.Second)
	status, err := l.PeekStatus(ctx, "acme", defaultQuota)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 10, status.Remaining, "one idle second refills requestsPerSecond tokens")

	decisions := consume(t, l, "acme", 11)
	for _, d := range decisions[:10] {
		assert.True(t, d.Allowed)
	}
	assert.False(t, decisions[10].Allowed)

	mock.Add(10 * time.Second)
	status, err = l.PeekStatus(ctx, "acme", defaultQuota)
	require.NoError(t, err)
	assert.Equal(t, 20, status.Remaining, "refill is capped at the burst limit")
}

func TestLimiter_MinuteWindow(t *testing.T) {
	t.Parallel()
	l, _, mock := setup(t)

	for i := range 100 {
		d := consume(t, l, "acme", 1)[0]
		require.True(t, d.Allowed, "request %d spread across the window should pass", i+1)
		mock.Add(600 * time.Millisecond)
	}

	// 60s elapsed exactly: move back inside the same window.
	mock.Set(windowStart.Add(59500 * time.Millisecond))
	d := consume(t, l, "acme", 1)[0]
	assert.False(t, d.Allowed, "101st request in the window is denied even with burst tokens left")
	assert.Equal(t, int64(500), d.RetryAfterMs)
	assert.Equal(t, windowStart.Add(time.Minute).Unix(), d.ResetTime)
}

func TestLimiter_WindowRollover(t *testing.T) {
	t.Parallel()
	l, _, mock := setup(t)
	ctx := context.Background()
	quota := ratelimiter.Config{RequestsPerSecond: 10, RequestsPerMinute: 5, BurstLimit: 20}

	mock.Add(30 * time.Second)
	for range 5 {
		d, err := l.CheckAndConsume(ctx, "acme", quota)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	d, err := l.CheckAndConsume(ctx, "acme", quota)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(30000), d.RetryAfterMs)

	mock.Add(30 * time.Second)
	d, err = l.CheckAndConsume(ctx, "acme", quota)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window resets the counter")
	assert.Equal(t, 4, d.Remaining)
}

func TestLimiter_PeekDoesNotMutate(t *testing.T) {
	t.Parallel()
	l, store, _ := setup(t)
	ctx := context.Background()

	consume(t, l, "acme", 5)
	before, err := store.Get(ctx, "ratelimit:acme")
	require.NoError(t, err)

	first, err := l.PeekStatus(ctx, "acme", defaultQuota)
	require.NoError(t, err)
	for range 5 {
		again, err := l.PeekStatus(ctx, "acme", defaultQuota)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 15, first.Remaining)

	after, err := store.Get(ctx, "ratelimit:acme")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	d := consume(t, l, "acme", 1)[0]
	assert.Equal(t, 14, d.Remaining)
}

func TestLimiter_PeekUnknownTenant(t *testing.T) {
	t.Parallel()
	l, store, _ := setup(t)

	d, err := l.PeekStatus(context.Background(), "fresh", defaultQuota)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 20, d.Remaining)
	assert.Equal(t, 0, store.Len(), "peek never creates state")
}

func TestLimiter_Reset(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)
	ctx := context.Background()

	consume(t, l, "acme", 21)
	require.NoError(t, l.Reset(ctx, "acme"))

	d := consume(t, l, "acme", 1)[0]
	assert.True(t, d.Allowed)
	assert.Equal(t, 19, d.Remaining, "full burst bucket and an empty window")

	assert.ErrorIs(t, l.Reset(ctx, ""), ratelimiter.ErrEmptyTenant)
}

func TestLimiter_ResetDropsTenantLock(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)
	ctx := context.Background()

	consume(t, l, "acme", 1)
	consume(t, l, "globex", 1)
	assert.Equal(t, 2, l.Tracked())

	require.NoError(t, l.Reset(ctx, "acme"))
	assert.Equal(t, 1, l.Tracked())

	consume(t, l, "acme", 1)
	assert.Equal(t, 2, l.Tracked())
}

func TestLimiter_ResetWhileConsuming(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%10 == 0 {
				assert.NoError(t, l.Reset(ctx, "acme"))
				return
			}
			_, err := l.CheckAndConsume(ctx, "acme", defaultQuota)
			assert.NoError(t, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers and resets deadlocked")
	}
	assert.LessOrEqual(t, l.Tracked(), 1)
}

func TestLimiter_TenantIsolation(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)

	consume(t, l, "acme", 21)
	d := consume(t, l, "globex", 1)[0]
	assert.True(t, d.Allowed)
	assert.Equal(t, 19, d.Remaining)
}

func TestLimiter_PersistedRecord(t *testing.T) {
	t.Parallel()
	l, store, mock := setup(t)
	ctx := context.Background()

	mock.Add(1500 * time.Millisecond)
	consume(t, l, "acme", 3)

	raw, err := store.Get(ctx, "ratelimit:acme")
	require.NoError(t, err)

	var state ratelimiter.State
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, "acme", state.TenantID)
	assert.Equal(t, 3, state.RequestCount)
	assert.Equal(t, windowStart.Unix()/60, state.WindowStart)
	assert.Equal(t, mock.Now().UnixMilli(), state.LastRequestAt)
	assert.InDelta(t, 17.0, state.BurstTokens, 0.0001)
	assert.Equal(t, mock.Now().Unix()+int64(ratelimiter.DefaultStateTTL/time.Second), state.TTL)

	mock.Add(ratelimiter.DefaultStateTTL)
	_, err = store.Get(ctx, "ratelimit:acme")
	assert.ErrorIs(t, err, statestore.ErrNotFound, "idle tenants expire")
}

func TestLimiter_CorruptState(t *testing.T) {
	t.Parallel()
	l, store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ratelimit:acme", []byte("{not json"), 0))
	d := consume(t, l, "acme", 1)[0]
	assert.True(t, d.Allowed)
	assert.Equal(t, 19, d.Remaining)
}

func TestLimiter_ClampsStoredState(t *testing.T) {
	t.Parallel()
	l, store, _ := setup(t)
	ctx := context.Background()

	raw, err := json.Marshal(ratelimiter.State{
		TenantID:      "acme",
		RequestCount:  -4,
		WindowStart:   windowStart.Unix() / 60,
		LastRequestAt: windowStart.UnixMilli(),
		BurstTokens:   500,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "ratelimit:acme", raw, 0))

	d, err := l.PeekStatus(ctx, "acme", defaultQuota)
	require.NoError(t, err)
	assert.Equal(t, 20, d.Remaining)
}

func TestLimiter_Validation(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		tenant string
		cfg    ratelimiter.Config
		err    error
	}{
		{"empty tenant", "", defaultQuota, ratelimiter.ErrEmptyTenant},
		{"zero rps", "acme", ratelimiter.Config{RequestsPerMinute: 1, BurstLimit: 1}, ratelimiter.ErrInvalidConfig},
		{"zero rpm", "acme", ratelimiter.Config{RequestsPerSecond: 1, BurstLimit: 1}, ratelimiter.ErrInvalidConfig},
		{"zero burst", "acme", ratelimiter.Config{RequestsPerSecond: 1, RequestsPerMinute: 1}, ratelimiter.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CheckAndConsume(ctx, tt.tenant, tt.cfg)
			assert.ErrorIs(t, err, tt.err)
			_, err = l.PeekStatus(ctx, tt.tenant, tt.cfg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLimiter_Invariants(t *testing.T) {
	t.Parallel()
	l, store, mock := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(1, 2))

	for range 2000 {
		mock.Add(time.Duration(rng.IntN(400)) * time.Millisecond)
		_, err := l.CheckAndConsume(ctx, "acme", defaultQuota)
		require.NoError(t, err)

		raw, err := store.Get(ctx, "ratelimit:acme")
		require.NoError(t, err)
		var state ratelimiter.State
		require.NoError(t, json.Unmarshal(raw, &state))

		require.GreaterOrEqual(t, state.BurstTokens, 0.0)
		require.LessOrEqual(t, state.BurstTokens, float64(defaultQuota.BurstLimit))
		require.GreaterOrEqual(t, state.RequestCount, 0)
		require.LessOrEqual(t, state.RequestCount, defaultQuota.RequestsPerMinute)
	}
}

func TestLimiter_ConcurrentSameTenant(t *testing.T) {
	t.Parallel()
	l, _, _ := setup(t)

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range 60 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.CheckAndConsume(context.Background(), "acme", defaultQuota)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), allowed.Load())
}

func TestLimiter_CleanupExpired(t *testing.T) {
	t.Parallel()
	l, store, mock := setup(t)
	ctx := context.Background()

	consume(t, l, "acme", 1)
	mock.Add(ratelimiter.DefaultStateTTL + time.Second)
	require.NoError(t, l.CleanupExpired(ctx))
	assert.Equal(t, 0, store.Len())

	noSweep := ratelimiter.New(&failingStore{})
	assert.NoError(t, noSweep.CleanupExpired(ctx), "stores without a sweeper are a no-op")
}

type failingStore struct {
	getErr error
	putErr error
	data   map[string][]byte
}

func (s *failingStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, statestore.ErrNotFound
}

func (s *failingStore) Put(_ context.Context, key string, val []byte, _ time.Duration) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key] = val
	return nil
}

func (s *failingStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func TestLimiter_FailOpen(t *testing.T) {
	t.Parallel()
	outage := errors.Join(statestore.ErrUnavailable, errors.New("connection refused"))

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(&failingStore{getErr: outage})
		for range 50 {
			d, err := l.CheckAndConsume(context.Background(), "acme", defaultQuota)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 100, d.Limit)
			assert.Equal(t, 100, d.Remaining)
		}

		d, err := l.PeekStatus(context.Background(), "acme", defaultQuota)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 100, d.Limit)
	})

	t.Run("write failure", func(t *testing.T) {
		t.Parallel()
		l := ratelimiter.New(&failingStore{putErr: outage})
		d, err := l.CheckAndConsume(context.Background(), "acme", defaultQuota)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 100, d.Limit)
		assert.Equal(t, 100, d.Remaining)
	})
}
