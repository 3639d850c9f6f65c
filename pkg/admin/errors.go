package admin

import "errors"

var (
	ErrMalformedBody  = errors.New("admin: malformed request body")
	ErrTenantMismatch = errors.New("admin: tenant id in body does not match the path")
)
