package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates that the provided quota is unusable.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")

	// ErrEmptyTenant indicates a call without a tenant identifier.
	ErrEmptyTenant = errors.New("tenant id is required")
)
