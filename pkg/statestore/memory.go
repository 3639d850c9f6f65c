package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type memoryItem struct {
	val       []byte
	expiresAt time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryStore implements Store in process memory. Expired entries are hidden
// from Get immediately and physically removed by Sweep, which also runs on a
// background ticker unless the cleanup interval is zero.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]memoryItem
	clock  clock.Clock
	closed bool

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCleanupInterval sets the background sweep interval.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryClock replaces the wall clock, mostly for tests.
func WithMemoryClock(c clock.Clock) MemoryOption {
	return func(ms *MemoryStore) {
		if c != nil {
			ms.clock = c
		}
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		items:           make(map[string]memoryItem),
		clock:           clock.New(),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrClosed
	}

	item, ok := ms.items[key]
	if !ok || item.expired(ms.clock.Now()) {
		return nil, ErrNotFound
	}

	out := make([]byte, len(item.val))
	copy(out, item.val)
	return out, nil
}

func (ms *MemoryStore) Put(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	stored := make([]byte, len(val))
	copy(stored, val)

	item := memoryItem{val: stored}
	if ttl > 0 {
		item.expiresAt = ms.clock.Now().Add(ttl)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}
	ms.items[key] = item
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}
	delete(ms.items, key)
	return nil
}

// Sweep removes expired entries.
func (ms *MemoryStore) Sweep(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return 0, ErrClosed
	}

	now := ms.clock.Now()
	removed := 0
	for key, item := range ms.items {
		if item.expired(now) {
			delete(ms.items, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

func (ms *MemoryStore) cleanup() {
	ticker := ms.clock.Ticker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = ms.Sweep(context.Background())
		case <-ms.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and rejects further calls. Safe to call multiple times.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.stopCleanup)
		ms.mu.Lock()
		ms.closed = true
		ms.items = make(map[string]memoryItem)
		ms.mu.Unlock()
	})
	return nil
}
