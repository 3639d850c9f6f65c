package metering

import (
	"context"
	"time"
)

// Event is the usage record of one terminal operation outcome.
type Event struct {
	TenantID  string
	Operation string
	Success   bool
	Category  string // empty on success
	Attempts  int
	Duration  time.Duration
	At        time.Time
}

// Sink receives metering events. Implementations must be cheap and safe for
// concurrent use; failures never affect the metered operation.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Record(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })
