package tokens

import "errors"

var (
	ErrEmptyTenant        = errors.New("tokens: tenant id is required")
	ErrEmptyCode          = errors.New("tokens: authorization code is required")
	ErrInvalidCredentials = errors.New("tokens: invalid oauth2 credentials")
	ErrInvalidToken       = errors.New("tokens: token set has neither access nor refresh token")

	// ErrNoToken means the tenant has not completed the authorization bootstrap
	// or its access was revoked.
	ErrNoToken = errors.New("tokens: no token for tenant")

	// ErrNoRefreshToken means the cached access token expired and cannot be renewed.
	ErrNoRefreshToken = errors.New("tokens: access token expired and no refresh token is available")

	ErrRefreshFailed  = errors.New("tokens: refresh grant failed")
	ErrExchangeFailed = errors.New("tokens: authorization code exchange failed")

	// ErrStore wraps state store failures; a token that cannot be read is never assumed valid.
	ErrStore        = errors.New("tokens: token store failure")
	ErrCorruptToken = errors.New("tokens: cached token is unreadable")
)
