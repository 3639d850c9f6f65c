package audit

import "errors"

var (
	// ErrSinkClosed indicates the sink no longer accepts events
	ErrSinkClosed = errors.New("audit sink is closed")

	// ErrEventValidation indicates event validation failed
	ErrEventValidation = errors.New("event validation failed")

	// ErrBufferFull indicates the async buffer is full and the event was dropped
	ErrBufferFull = errors.New("async buffer is full")
)
