package apierror_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/apierror"
)

func TestFromResponse_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		category  apierror.Category
		code      string
		retryable bool
	}{
		{http.StatusUnauthorized, apierror.CategoryAuth, apierror.CodeUnauthorized, false},
		{http.StatusForbidden, apierror.CategoryPermission, apierror.CodeForbidden, false},
		{http.StatusNotFound, apierror.CategoryNotFound, apierror.CodeNotFound, false},
		{http.StatusTooManyRequests, apierror.CategoryRateLimit, apierror.CodeTooManyRequests, true},
		{http.StatusBadRequest, apierror.CategoryValidation, apierror.CodeBadRequest, false},
		{http.StatusUnprocessableEntity, apierror.CategoryValidation, apierror.CodeUnprocessableEntity, false},
		{http.StatusInternalServerError, apierror.CategoryInternal, apierror.CodeServerError, true},
		{http.StatusBadGateway, apierror.CategoryInternal, apierror.CodeServerError, true},
		{http.StatusServiceUnavailable, apierror.CategoryInternal, apierror.CodeServerError, true},
		{http.StatusConflict, apierror.CategoryInternal, apierror.CodeHTTPError, false},
		{http.StatusTeapot, apierror.CategoryInternal, apierror.CodeHTTPError, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()
			e := apierror.FromResponse(tt.status, http.Header{}, nil)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.status, e.HTTPStatus)
			assert.Equal(t, http.StatusText(tt.status), e.Message)
			assert.True(t, e.Category.Valid())
		})
	}
}

func TestFromResponse_LooseBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"oauth style", `{"error":"invalid_grant","error_description":"refresh token expired"}`, "refresh token expired"},
		{"error string", `{"error":"user already exists"}`, "user already exists"},
		{"error object", `{"error":{"code":"E42","message":"email is malformed"}}`, "email is malformed"},
		{"error object code only", `{"error":{"code":"E42"}}`, "E42"},
		{"message", `{"message":"quota exhausted"}`, "quota exhausted"},
		{"scim detail", `{"schemas":["urn:ietf:params:scim:api:messages:2.0:Error"],"detail":"userName must be unique","status":"409"}`, "userName must be unique"},
		{"errors list", `{"errors":[{"message":"first"},{"message":"second"}]}`, "first"},
		{"errors strings", `{"errors":["only"]}`, "only"},
		{"plain text", "upstream exploded\n", "upstream exploded"},
		{"unknown object", `{"foo":"bar"}`, "Bad Request"},
		{"empty", "", "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := apierror.FromResponse(http.StatusBadRequest, http.Header{}, []byte(tt.body))
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, apierror.CategoryValidation, e.Category)
		})
	}
}

func TestFromResponse_DetailsKeepBody(t *testing.T) {
	t.Parallel()

	e := apierror.FromResponse(http.StatusConflict, nil, []byte(`{"detail":"exists","scimType":"uniqueness"}`))
	details, ok := e.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "uniqueness", details["scimType"])

	plain := apierror.FromResponse(http.StatusBadGateway, nil, []byte("<html>bad gateway</html>"))
	assert.Nil(t, plain.Details)
	assert.Equal(t, "<html>bad gateway</html>", plain.Message)
}

func TestFromResponse_LongMessageTruncated(t *testing.T) {
	t.Parallel()

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	e := apierror.FromResponse(http.StatusInternalServerError, nil, long)
	assert.Len(t, e.Message, 512+len("..."))
}

func TestFromResponse_TruncationKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// The 2-byte runes start at odd offsets, so byte 512 falls inside one.
	body := `{"message":"x` + strings.Repeat("é", 1000) + `"}`
	e := apierror.FromResponse(http.StatusBadRequest, nil, []byte(body))

	assert.True(t, utf8.ValidString(e.Message))
	assert.True(t, strings.HasSuffix(e.Message, "é..."))
	assert.Len(t, e.Message, 511+len("..."))
}

func TestFromResponse_RetryAfter(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Retry-After", "7")
	e := apierror.FromResponse(http.StatusTooManyRequests, h, nil)
	assert.Equal(t, int64(7000), e.RetryAfterMs)
	assert.Equal(t, 7*time.Second, e.RetryAfter())

	h.Set("Retry-After", time.Now().Add(2*time.Minute).UTC().Format(http.TimeFormat))
	e = apierror.FromResponse(http.StatusTooManyRequests, h, nil)
	assert.InDelta(t, 120_000, e.RetryAfterMs, 2_000)

	h.Set("Retry-After", "soon")
	e = apierror.FromResponse(http.StatusTooManyRequests, h, nil)
	assert.Zero(t, e.RetryAfterMs)

	h.Set("Retry-After", "7")
	e = apierror.FromResponse(http.StatusBadRequest, h, nil)
	assert.Zero(t, e.RetryAfterMs, "only throttling statuses carry a hint")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	refused := &url.Error{Op: "Get", URL: "http://127.0.0.1:1", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}}
	reset := &url.Error{Op: "Post", URL: "http://api", Err: &net.OpError{
		Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET),
	}}
	dns := &url.Error{Op: "Get", URL: "http://nope.invalid", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true},
	}}

	tests := []struct {
		name      string
		err       error
		category  apierror.Category
		code      string
		retryable bool
	}{
		{"connection refused", refused, apierror.CategoryNetwork, apierror.CodeConnectionRefused, true},
		{"connection reset", reset, apierror.CategoryNetwork, apierror.CodeConnectionReset, true},
		{"unexpected eof", &url.Error{Op: "Get", URL: "http://api", Err: io.EOF}, apierror.CategoryNetwork, apierror.CodeConnectionReset, true},
		{"dns", dns, apierror.CategoryNetwork, apierror.CodeDNSFailure, true},
		{"net timeout", &url.Error{Op: "Get", URL: "http://api", Err: timeoutErr{}}, apierror.CategoryNetwork, apierror.CodeTimeout, true},
		{"deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), apierror.CategoryNetwork, apierror.CodeTimeout, true},
		{"canceled", context.Canceled, apierror.CategoryInternal, apierror.CodeCanceled, false},
		{"response shape", fmt.Errorf("%w: missing id", apierror.ErrResponseShape), apierror.CategoryValidation, apierror.CodeInvalidResponse, false},
		{"unknown", errors.New("boom"), apierror.CategoryInternal, apierror.CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := apierror.Classify(tt.err)
			require.NotNil(t, e)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.ErrorIs(t, e, tt.err)
		})
	}
}

func TestClassify_Passthrough(t *testing.T) {
	t.Parallel()

	assert.Nil(t, apierror.Classify(nil))

	orig := apierror.FromResponse(http.StatusNotFound, nil, nil)
	wrapped := fmt.Errorf("get user: %w", orig)
	assert.Same(t, orig, apierror.Classify(wrapped))

	assert.True(t, apierror.IsCategory(wrapped, apierror.CategoryNotFound))
	assert.False(t, apierror.IsCategory(nil, apierror.CategoryNotFound))
}

func TestError_CopyOnModify(t *testing.T) {
	t.Parallel()

	base := apierror.New(apierror.CategoryInternal, apierror.CodeInternal, "boom")
	retry := base.WithRetryable(true).WithDetails(map[string]any{"k": "v"}).WithRetryAfter(time.Second)

	assert.False(t, base.Retryable)
	assert.Nil(t, base.Details)
	assert.True(t, retry.Retryable)
	assert.Equal(t, int64(1000), retry.RetryAfterMs)
}

func TestError_JSON(t *testing.T) {
	t.Parallel()

	e := apierror.RateLimited(250)
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code": "RATE_LIMIT_EXCEEDED",
		"message": "tenant rate limit exceeded",
		"retryable": true,
		"category": "rate_limit",
		"retryAfterMs": 250
	}`, string(raw))
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	cause := errors.New("refresh grant failed")
	auth := apierror.Unauthenticated(cause)
	assert.Equal(t, apierror.CategoryAuth, auth.Category)
	assert.False(t, auth.Retryable)
	assert.ErrorIs(t, auth, cause)

	canceled := apierror.Canceled(context.Canceled)
	assert.Equal(t, apierror.CodeCanceled, canceled.Code)
	assert.False(t, canceled.Retryable)
	assert.Contains(t, canceled.Error(), "CANCELED (internal)")
}
