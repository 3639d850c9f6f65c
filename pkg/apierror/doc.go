// Package apierror normalizes every failure of an outbound directory API
// call into one closed taxonomy.
//
// An *Error carries a Code, a human Message, opaque Details, a Category and
// a Retryable flag, plus the HTTP status and a Retry-After hint when the
// upstream provided them. Two entry points produce it:
//
//   - FromResponse classifies a non-2xx response by status and extracts a
//     message from loosely shaped JSON error bodies.
//   - Classify maps transport errors (refused connections, DNS failures,
//     resets, timeouts) and anything else into the taxonomy.
//
// Status mapping:
//
//	401        auth        not retryable
//	403        permission  not retryable
//	404        not_found   not retryable
//	429        rate_limit  retryable
//	400, 422   validation  not retryable
//	5xx        internal    retryable
//	other      internal    not retryable
package apierror
