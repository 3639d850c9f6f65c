package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result represents the outcome of an audited operation
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is the audit record of one terminal operation outcome.
type Event struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Operation  string    `json:"operation"`
	RunID      string    `json:"run_id,omitempty"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Result     Result    `json:"result"`
	Category   string    `json:"category,omitempty"`
	Code       string    `json:"code,omitempty"`
	Error      string    `json:"error,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Attempts   int       `json:"attempts"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEvent stamps a fresh id and creation time.
func NewEvent(tenantID, operation string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Operation: operation,
		CreatedAt: at,
	}
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrEventValidation)
	}
	if e.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrEventValidation)
	}
	switch e.Result {
	case ResultSuccess, ResultFailure:
	default:
		return fmt.Errorf("%w: unknown result %q", ErrEventValidation, e.Result)
	}
	return nil
}
