// Package requestid correlates admin requests and outbound directory calls.
//
// Middleware assigns every inbound request an X-Request-ID, reusing the
// caller's when it is well formed. The executor forwards the id found in the
// operation context to the tenant API, so a single id links the admin access
// log, the pipeline log records and the provider's own request logs:
//
//	ctx = requestid.WithContext(ctx, "sync-2024-05-01")
//	resp, err := svc.GetUser(ctx, "acme", "u-1")
//
// LoggerExtractor adds the id to slog records as "request_id".
package requestid
