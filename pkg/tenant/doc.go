// Package tenant holds per-tenant configuration for the directory pipeline.
//
// A Config bundles the tenant's API base URL, OAuth2 client registration,
// rate limits, retry policy and timeouts. Missing sections take defaults
// (10 rps, 100 rpm, burst 20; 3 attempts with exponential backoff from
// 200ms to 5s; 5s connect and 30s request timeouts).
//
// Registry stores configurations as immutable snapshots behind an
// atomic pointer. Put, Delete and Replace publish a new snapshot, so an
// operation that read a Config keeps a consistent view while an update lands.
//
//	configs, err := tenant.LoadFile("tenants.yaml")
//	reg, err := tenant.NewRegistry(configs...)
//	cfg, err := reg.Get("acme")
//
// Middleware resolves a tenant from an HTTP request, rejects unknown ids and
// stores the id in the request context; LoggerExtractor surfaces it in logs.
package tenant
