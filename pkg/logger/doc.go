// Package logger builds the *slog.Logger used across dirbridge.
//
// New assembles a text or JSON slog.Handler from functional options and wraps
// it with ContextHandler, which runs registered ContextExtractor callbacks
// on every record. The attribute helpers in attr.go keep key names consistent
// between the rate limiter, the token manager and the executor:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "dirbridge"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "request completed",
//		logger.TenantID("acme"),
//		logger.Operation("users.create"),
//		logger.Attempt(2),
//	)
//
// Error and RunID return an empty attribute for zero values so call sites
// do not need nil checks.
package logger
