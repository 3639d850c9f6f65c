package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/tenant"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	reg, err := tenant.NewRegistry(tenant.Config{ID: "acme"})
	require.NoError(t, err)

	var seen string
	handler := tenant.Middleware(reg, tenant.HeaderResolver(""), tenant.WithSkipPaths("/health"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = tenant.IDFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		seen   string
	}{
		{"known tenant", "/users", "acme", http.StatusNoContent, "acme"},
		{"unknown tenant", "/users", "initech", http.StatusNotFound, ""},
		{"missing header", "/users", "", http.StatusBadRequest, ""},
		{"invalid id", "/users", "../etc", http.StatusBadRequest, ""},
		{"skipped path", "/health/live", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("X-Tenant-ID", tt.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.name)
		assert.Equal(t, tt.seen, seen, tt.name)
	}
}

func TestURLParamResolver(t *testing.T) {
	t.Parallel()

	reg, err := tenant.NewRegistry(tenant.Config{ID: "acme"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Use(tenant.Middleware(reg, tenant.URLParamResolver("tenantID")))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(tenant.MustIDFromContext(r.Context())))
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/acme", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/globex", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := tenant.IDFromContext(ctx)
	assert.False(t, ok)
	assert.Panics(t, func() { tenant.MustIDFromContext(ctx) })

	ctx = tenant.WithID(ctx, "acme")
	assert.Equal(t, "acme", tenant.MustIDFromContext(ctx))

	attr, ok := tenant.LoggerExtractor()(ctx)
	require.True(t, ok)
	assert.Equal(t, "tenant_id", attr.Key)
	assert.Equal(t, "acme", attr.Value.String())
}
