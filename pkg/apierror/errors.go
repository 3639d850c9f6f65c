package apierror

import "errors"

// ErrResponseShape marks a response that could not be decoded into the
// expected shape. It classifies as validation, never retryable.
var ErrResponseShape = errors.New("apierror: unexpected response shape")
