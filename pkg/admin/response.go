package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/dirbridge/pkg/apierror"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/ratelimiter"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
	"github.com/dmitrymomot/dirbridge/pkg/tokens"
)

var (
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

type errorResponse struct {
	Error *apierror.Error `json:"error"`
}

// writeError renders err in the same envelope the pipeline uses for
// operation failures.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, e := toAPIError(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "admin request failed", logger.Component("admin"), logger.Error(err))
	}
	e.HTTPStatus = status
	writeJSON(w, status, errorResponse{Error: e})
}

func toAPIError(err error) (int, *apierror.Error) {
	switch {
	case errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, apierror.New(apierror.CategoryNotFound, apierror.CodeNotFound, err.Error())
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, apierror.New(apierror.CategoryValidation, apierror.CodeBadRequest, err.Error())
	case errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, apierror.New(apierror.CategoryNotFound, apierror.CodeNotFound, "tenant not found")
	case errors.Is(err, tenant.ErrInvalidIdentifier),
		errors.Is(err, tenant.ErrInvalidConfig),
		errors.Is(err, tenant.ErrNoTenantInContext),
		errors.Is(err, ratelimiter.ErrInvalidConfig),
		errors.Is(err, tokens.ErrEmptyCode),
		errors.Is(err, tokens.ErrInvalidCredentials),
		errors.Is(err, ErrMalformedBody),
		errors.Is(err, ErrTenantMismatch):
		return http.StatusBadRequest, apierror.New(apierror.CategoryValidation, apierror.CodeBadRequest, err.Error())
	case errors.Is(err, tokens.ErrExchangeFailed):
		return http.StatusBadGateway, apierror.New(apierror.CategoryAuth, apierror.CodeUnauthorized, err.Error())
	default:
		return http.StatusInternalServerError, apierror.New(apierror.CategoryInternal, apierror.CodeInternal, "internal error")
	}
}
