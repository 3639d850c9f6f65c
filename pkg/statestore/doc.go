// Package statestore provides the key-value persistence used for rate limit
// counters and cached OAuth tokens.
//
// Store is deliberately small: Get, Put with a per-key TTL, and Delete.
// Two backends ship with the package:
//
//   - MemoryStore keeps entries in process memory and sweeps expired keys on
//     a ticker. It implements Sweeper so callers without native expiry can
//     trigger cleanup explicitly.
//   - RedisStore delegates to github.com/redis/go-redis/v9 and relies on
//     Redis key expiry.
//
// Backend failures are wrapped with ErrUnavailable; absent or expired keys
// return ErrNotFound.
package statestore
