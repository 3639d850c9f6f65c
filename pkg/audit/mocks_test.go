package audit_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/dirbridge/pkg/audit"
)

// MockBatchWriter is a mock implementation of audit.BatchWriter.
type MockBatchWriter struct {
	mock.Mock
}

func (m *MockBatchWriter) StoreBatch(ctx context.Context, events []audit.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingWriter keeps every stored batch.
type recordingWriter struct {
	mu      sync.Mutex
	batches [][]audit.Event
	release chan struct{}
}

func (w *recordingWriter) StoreBatch(_ context.Context, events []audit.Event) error {
	if w.release != nil {
		<-w.release
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]audit.Event(nil), events...))
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}
