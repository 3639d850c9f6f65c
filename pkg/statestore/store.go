package statestore

import (
	"context"
	"time"
)

// Store is a key-value store with per-key expiry. Keys are namespaced by the
// caller (e.g. "ratelimit:<tenant>", "token:<tenant>").
type Store interface {
	// Get returns the stored value or ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores val under key. A ttl <= 0 means the value never expires.
	Put(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by stores without native expiry. Sweep removes
// expired entries and reports how many were dropped.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
