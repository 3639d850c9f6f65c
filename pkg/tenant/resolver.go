package tenant

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DefaultHeader carries the tenant id for HeaderResolver.
const DefaultHeader = "X-Tenant-ID"

// Resolver finds the tenant id of an incoming request. An empty id without
// an error means the request names no tenant.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// HeaderResolver reads the tenant id from header, DefaultHeader when empty.
func HeaderResolver(header string) Resolver {
	if header == "" {
		header = DefaultHeader
	}
	return ResolverFunc(func(r *http.Request) (string, error) {
		return r.Header.Get(header), nil
	})
}

// URLParamResolver reads the tenant id from a chi route parameter, e.g.
// "tenantID" for routes mounted under /tenants/{tenantID}.
func URLParamResolver(param string) Resolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		return chi.URLParam(r, param), nil
	})
}
