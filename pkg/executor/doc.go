// Package executor issues every outbound call to a tenant's directory API.
//
// Execute runs one logical operation through a fixed pipeline:
//
//  1. The tenant's rate limiter admits or rejects the operation. A rejection
//     returns immediately as a retryable rate_limit failure carrying
//     retryAfterMs; the executor never waits on the limiter.
//  2. A bearer token is obtained from the token manager. Failure to get one
//     is a terminal auth failure.
//  3. The HTTP call is attempted up to Retry.MaxAttempts times. Failures are
//     classified by package apierror; non-retryable ones end the operation at
//     once, retryable ones wait for the policy backoff (linear or
//     exponential, raised by a Retry-After header up to the maximum delay).
//
// The result is always an OperationResponse envelope; the error return is
// reserved for malformed requests (ErrInvalidRequest). Every terminal outcome
// is reported to the audit and metering sinks. A sink that fails or panics is
// logged and does not affect the response.
//
// Each attempt is bounded by the tenant's request timeout and connections by
// its connection timeout. Cancelling ctx stops the operation, including a
// pending backoff, and yields an internal CANCELED failure.
//
//	resp, err := exec.Execute(ctx, executor.Request{
//		TenantID:  "acme",
//		Operation: "getUser",
//		Method:    http.MethodGet,
//		URL:       "Users/2819c223",
//	}, cfg)
//	user := executor.Decode[User](resp)
package executor
