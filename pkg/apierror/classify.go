package apierror

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Classify maps a transport or library error into the taxonomy. Errors that
// already carry an *Error in their chain are returned as is.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}

	switch {
	case errors.Is(err, ErrResponseShape):
		return New(CategoryValidation, CodeInvalidResponse, err.Error()).WithCause(err)
	case errors.Is(err, context.Canceled):
		return Canceled(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return New(CategoryNetwork, CodeTimeout, "request timed out").WithCause(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return New(CategoryNetwork, CodeTimeout, dnsErr.Error()).WithCause(err)
		}
		return New(CategoryNetwork, CodeDNSFailure, dnsErr.Error()).WithCause(err)
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return New(CategoryNetwork, CodeConnectionRefused, err.Error()).WithCause(err)
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return New(CategoryNetwork, CodeConnectionReset, err.Error()).WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return New(CategoryNetwork, CodeTimeout, err.Error()).WithCause(err)
		}
		return New(CategoryNetwork, CodeNetworkError, err.Error()).WithCause(err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return New(CategoryNetwork, CodeNetworkError, err.Error()).WithCause(err)
	}

	return New(CategoryInternal, CodeInternal, err.Error()).WithCause(err)
}
