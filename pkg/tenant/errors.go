package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no configuration exists for a tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrInvalidConfig is returned when a tenant configuration fails validation.
	ErrInvalidConfig = errors.New("invalid tenant configuration")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	ErrLoadingFile = errors.New("failed to load tenants file")
)
