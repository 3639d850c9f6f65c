package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/dirbridge/pkg/logger"
)

// AsyncOptions configures the batching and buffering behavior.
type AsyncOptions struct {
	BufferSize     int           // Max events queued in memory; further events are dropped
	BatchSize      int           // Target events per batch
	BatchTimeout   time.Duration // Max time a partial batch waits before flushing
	StorageTimeout time.Duration // Per-batch storage timeout
	Logger         *slog.Logger  // Receives storage failures and drops
}

// AsyncSink queues events and writes them in batches from a background
// goroutine. Record never waits for storage.
type AsyncSink struct {
	writer  BatchWriter
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	options AsyncOptions
	logger  *slog.Logger

	closed  atomic.Bool
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncSink starts the background writer. Call Close on shutdown to flush.
func NewAsyncSink(w BatchWriter, opts AsyncOptions) *AsyncSink {
	if w == nil {
		panic("audit: batch writer cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	l := opts.Logger
	if l == nil {
		l = logger.Discard()
	}

	s := &AsyncSink{
		writer:  w,
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
		logger:  l,
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

// Record enqueues the event. A full buffer drops it with ErrBufferFull.
func (s *AsyncSink) Record(ctx context.Context, event Event) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	if err := event.Validate(); err != nil {
		return err
	}

	select {
	case s.events <- event:
		return nil
	default:
		s.dropped.Add(1)
		return ErrBufferFull
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *AsyncSink) Dropped() int64 { return s.dropped.Load() }

// Failed returns how many events were lost to storage errors.
func (s *AsyncSink) Failed() int64 { return s.failed.Load() }

func (s *AsyncSink) worker() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.options.BatchSize)
	ticker := time.NewTicker(s.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// Storage is isolated from request contexts.
		ctx, cancel := context.WithTimeout(context.Background(), s.options.StorageTimeout)
		defer cancel()

		if err := s.writer.StoreBatch(ctx, batch); err != nil {
			s.failed.Add(int64(len(batch)))
			s.logger.Error("audit batch write failed",
				logger.Component("audit"),
				slog.Int("events", len(batch)),
				logger.Error(err),
			)
		}

		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.events:
			batch = append(batch, ev)
			if len(batch) >= s.options.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					batch = append(batch, ev)
					if len(batch) >= s.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. The context
// bounds the wait; events still queued when it expires may be lost.
func (s *AsyncSink) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
