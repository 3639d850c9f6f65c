package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: connection url is empty")
	ErrInvalidURL         = errors.New("redis: invalid connection url")
	ErrNotReady           = errors.New("redis: server did not answer PING in time")
	ErrUnhealthy          = errors.New("redis: healthcheck failed")
)
