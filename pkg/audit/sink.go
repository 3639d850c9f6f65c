package audit

import (
	"context"
	"errors"
)

// Sink receives audit events. Implementations must not block the caller for
// long; the executor calls Record on its hot path.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// BatchWriter stores events in bulk. AsyncSink flushes into one.
type BatchWriter interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Record(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

type multiSink []Sink

// Multi fans an event out to every sink, joining their errors.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
