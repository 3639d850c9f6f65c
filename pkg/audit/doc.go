// Package audit records the terminal outcome of every outbound directory
// operation.
//
// The executor calls Sink.Record once per operation, after the result is
// known. Sinks must not slow the caller down and their failures never change
// the operation's result.
//
// AsyncSink is the production sink: Record only enqueues, and a background
// goroutine writes batches to a BatchWriter. When the buffer is full the
// event is dropped and counted rather than blocking. SlogSink renders events
// as structured log lines and can be used directly or as the BatchWriter
// behind an AsyncSink.
//
//	sink := audit.NewAsyncSink(audit.NewSlogSink(log), audit.AsyncOptions{})
//	defer sink.Close(context.Background())
package audit
