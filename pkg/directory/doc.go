// Package directory is the caller-facing API of dirbridge: user operations
// against a tenant's SCIM-style directory plus the administrative surface.
//
// Every user operation looks up the tenant configuration, then runs through
// the executor, so it is rate limited, authenticated and retried per the
// tenant's policy. Results are always executor.OperationResponse envelopes;
// the error return only reports precondition violations such as an unknown
// tenant (tenant.ErrTenantNotFound) or a missing user id.
//
//	ctx = directory.WithRunID(ctx, runID)
//	resp, err := svc.ListUsers(ctx, "acme", directory.ListOptions{
//		Filter: directory.And(
//			directory.Eq("userName", "jdoe"),
//			directory.Or(directory.Pr("emails"), directory.Sw("displayName", "J")),
//		),
//		Count: 50,
//	})
//	if err != nil {
//		return err
//	}
//	if !resp.Success {
//		// resp.Error.Category, resp.Error.Retryable, resp.Error.RetryAfterMs
//	}
//
// Administrative operations (ResetRateLimit, GetRateLimitStatus,
// RevokeAccess, ValidateAuth, ExchangeAuthorizationCode, UpdateTenantConfig,
// CleanupExpired) act on one tenant at a time and never touch the
// directory API.
package directory
