// Package admin serves the operator HTTP API of the dirbridge daemon.
//
// Routes:
//
//	GET    /health/live
//	GET    /health/ready
//	GET    /metrics
//	GET    /tenants
//	PUT    /tenants/{tenantID}
//	GET    /tenants/{tenantID}
//	GET    /tenants/{tenantID}/rate-limit
//	DELETE /tenants/{tenantID}/rate-limit
//	GET    /tenants/{tenantID}/auth
//	DELETE /tenants/{tenantID}/auth
//	GET    /tenants/{tenantID}/auth/url?state=...
//	POST   /tenants/{tenantID}/auth/code     {"code": "..."}
//
// Failures use the apierror envelope under an "error" key. The API has no
// authentication of its own and must listen on a private interface.
package admin
