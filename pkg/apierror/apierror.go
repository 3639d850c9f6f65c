package apierror

import (
	"errors"
	"fmt"
	"time"
)

// Category is the closed set of failure classes surfaced to callers.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryRateLimit  Category = "rate_limit"
	CategoryQuota      Category = "quota"
	CategoryValidation Category = "validation"
	CategoryNetwork    Category = "network"
	CategoryInternal   Category = "internal"
	CategoryNotFound   Category = "not_found"
	CategoryPermission Category = "permission"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryAuth,
	CategoryRateLimit,
	CategoryQuota,
	CategoryValidation,
	CategoryNetwork,
	CategoryInternal,
	CategoryNotFound,
	CategoryPermission,
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Retryable is the default retryability of the category. Internal failures
// are only retryable when they come from a 5xx response.
func (c Category) Retryable() bool {
	return c == CategoryRateLimit || c == CategoryNetwork
}

// Codes produced by the classifier.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnprocessableEntity = "UNPROCESSABLE_ENTITY"
	CodeServerError         = "SERVER_ERROR"
	CodeHTTPError           = "HTTP_ERROR"
	CodeConnectionRefused   = "CONNECTION_REFUSED"
	CodeConnectionReset     = "CONNECTION_RESET"
	CodeDNSFailure          = "DNS_FAILURE"
	CodeTimeout             = "TIMEOUT"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeInvalidResponse     = "INVALID_RESPONSE"
	CodeCanceled            = "CANCELED"
	CodeInternal            = "INTERNAL_ERROR"

	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeTokenUnavailable  = "TOKEN_UNAVAILABLE"
)

// Error is the normalized failure envelope. Values are built once by the
// classifier and the With* helpers return modified copies.
type Error struct {
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	Details      any      `json:"details,omitempty"`
	Retryable    bool     `json:"retryable"`
	Category     Category `json:"category"`
	HTTPStatus   int      `json:"httpStatus,omitempty"`
	RetryAfterMs int64    `json:"retryAfterMs,omitempty"`

	cause error
}

// New creates an Error with the category's default retryability.
func New(category Category, code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  category,
		Retryable: category.Retryable(),
	}
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (%s, status %d): %s", e.Code, e.Category, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap exposes the underlying transport or library error.
func (e *Error) Unwrap() error { return e.cause }

// RetryAfter returns RetryAfterMs as a duration.
func (e *Error) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterMs) * time.Millisecond
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.cause = cause
	return c
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := e.clone()
	c.Details = details
	return c
}

// WithRetryable returns a copy with the retryable flag overridden.
func (e *Error) WithRetryable(retryable bool) *Error {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// WithRetryAfter returns a copy carrying a retry hint.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	c := e.clone()
	c.RetryAfterMs = d.Milliseconds()
	return c
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCategory reports whether err classifies into category.
func IsCategory(err error, category Category) bool {
	if err == nil {
		return false
	}
	return Classify(err).Category == category
}

// RateLimited is the envelope for a local quota denial.
func RateLimited(retryAfterMs int64) *Error {
	return &Error{
		Code:         CodeRateLimitExceeded,
		Message:      "tenant rate limit exceeded",
		Category:     CategoryRateLimit,
		Retryable:    true,
		RetryAfterMs: retryAfterMs,
	}
}

// Unauthenticated is the envelope for a tenant without a usable token.
func Unauthenticated(cause error) *Error {
	msg := "no valid access token for tenant"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:     CodeTokenUnavailable,
		Message:  msg,
		Category: CategoryAuth,
		cause:    cause,
	}
}

// Canceled is the envelope for an operation abandoned by its caller.
func Canceled(cause error) *Error {
	msg := "operation canceled"
	if cause != nil {
		msg = "operation canceled: " + cause.Error()
	}
	return &Error{
		Code:     CodeCanceled,
		Message:  msg,
		Category: CategoryInternal,
		cause:    cause,
	}
}
