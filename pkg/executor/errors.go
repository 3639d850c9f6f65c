package executor

import "errors"

// ErrInvalidRequest is returned by Execute for programmer errors: missing
// tenant, operation or URL, an unsupported method, or an unmarshalable body.
// Every other outcome is reported inside the OperationResponse.
var ErrInvalidRequest = errors.New("executor: invalid request")
