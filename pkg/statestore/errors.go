package statestore

import "errors"

var (
	// ErrNotFound indicates the key is absent or its TTL elapsed.
	ErrNotFound = errors.New("statestore: key not found")

	// ErrUnavailable wraps backend failures (network, server errors).
	ErrUnavailable = errors.New("statestore: backend unavailable")

	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("statestore: store closed")

	// ErrEmptyKey is returned for empty keys.
	ErrEmptyKey = errors.New("statestore: empty key")
)
