package tenant

import (
	"fmt"
	"net/http"
	"strings"
)

// Middleware resolves the tenant of an incoming request, checks that it is
// registered and adds its id to the request context.
func Middleware(registry *Registry, resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if id == "" {
				cfg.errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			if !ValidID(id) {
				cfg.errorHandler(w, r, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id))
				return
			}
			if _, err := registry.Get(id); err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
