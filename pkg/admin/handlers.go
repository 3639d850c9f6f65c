package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/dirbridge/pkg/tenant"
)

const maxBodyBytes = 1 << 20

type tenantsResponse struct {
	Tenants []string `json:"tenants"`
}

type authStatus struct {
	TenantID string `json:"tenantId"`
	Valid    bool   `json:"valid"`
}

type authURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *handler) listTenants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tenantsResponse{Tenants: h.dir.Tenants()})
}

func (h *handler) getTenant(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.dir.Tenant(tenant.MustIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// putTenant creates or replaces a tenant. The client secret is never part of
// the JSON form, so a replaced tenant keeps its current one.
func (h *handler) putTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")
	if !tenant.ValidID(id) {
		writeError(w, r, h.log, fmt.Errorf("%w: %q", tenant.ErrInvalidIdentifier, id))
		return
	}

	var cfg tenant.Config
	if err := decode(r, &cfg); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if cfg.ID != "" && cfg.ID != id {
		writeError(w, r, h.log, ErrTenantMismatch)
		return
	}
	cfg.ID = id

	status := http.StatusCreated
	if current, err := h.dir.Tenant(id); err == nil {
		status = http.StatusOK
		if cfg.OAuth.ClientSecret == "" {
			cfg.OAuth.ClientSecret = current.OAuth.ClientSecret
		}
	}

	if err := h.dir.UpdateTenantConfig(r.Context(), cfg); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	saved, err := h.dir.Tenant(id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, status, saved)
}

func (h *handler) getRateLimit(w http.ResponseWriter, r *http.Request) {
	d, err := h.dir.GetRateLimitStatus(r.Context(), tenant.MustIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) resetRateLimit(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.ResetRateLimit(r.Context(), tenant.MustIDFromContext(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getAuth(w http.ResponseWriter, r *http.Request) {
	id := tenant.MustIDFromContext(r.Context())
	ok, err := h.dir.ValidateAuth(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authStatus{TenantID: id, Valid: ok})
}

func (h *handler) revokeAuth(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.RevokeAccess(r.Context(), tenant.MustIDFromContext(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authURL returns the consent URL. A random state is issued when the caller
// does not supply one; matching it on the redirect is the caller's job.
func (h *handler) authURL(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = uuid.NewString()
	}
	u, err := h.dir.AuthCodeURL(tenant.MustIDFromContext(r.Context()), state)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authURLResponse{URL: u, State: state})
}

func (h *handler) exchangeCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.dir.ExchangeAuthorizationCode(r.Context(), tenant.MustIDFromContext(r.Context()), req.Code); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrMalformedBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
