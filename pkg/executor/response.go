package executor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/dirbridge/pkg/apierror"
)

// Metadata describes how an operation was executed.
type Metadata struct {
	Operation       string    `json:"operation"`
	TenantID        string    `json:"tenantId"`
	RunID           string    `json:"runId,omitempty"`
	ExecutionTimeMs int64     `json:"executionTimeMs"` // from the rate limit check to the final outcome
	Timestamp       time.Time `json:"timestamp"`
	Attempts        int       `json:"attempts"` // outbound HTTP attempts; 0 when rejected before the first call
}

// OperationResponse is the only value an operation ever yields. Data is set
// only on success and Error only on failure.
type OperationResponse[T any] struct {
	Success  bool            `json:"success"`
	Data     T               `json:"data,omitempty"`
	Error    *apierror.Error `json:"error,omitempty"`
	Metadata Metadata        `json:"metadata"`
}

// Err returns the failure as an error, or nil on success.
func (r *OperationResponse[T]) Err() error {
	if r == nil || r.Error == nil {
		return nil
	}
	return r.Error
}

// Decode converts a raw response into a typed one. A success whose body does
// not decode into T becomes a validation failure. An empty body decodes to
// the zero value.
func Decode[T any](raw *OperationResponse[json.RawMessage]) *OperationResponse[T] {
	out := &OperationResponse[T]{
		Success:  raw.Success,
		Error:    raw.Error,
		Metadata: raw.Metadata,
	}
	if !raw.Success || len(raw.Data) == 0 {
		return out
	}

	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		var zero T
		out.Success = false
		out.Data = zero
		out.Error = apierror.Classify(fmt.Errorf("%w: decode %T: %w", apierror.ErrResponseShape, zero, err))
	}
	return out
}
