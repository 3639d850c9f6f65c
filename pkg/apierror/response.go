package apierror

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const maxMessageLen = 512

// FromResponse classifies a non-2xx HTTP response. The body may be any of the
// loose error shapes APIs return; it is normalized into Message, and the
// decoded body is kept as Details.
func FromResponse(status int, header http.Header, body []byte) *Error {
	return fromResponse(status, header, body, time.Now())
}

func fromResponse(status int, header http.Header, body []byte, now time.Time) *Error {
	e := statusError(status)
	e.HTTPStatus = status

	msg, details := normalizeBody(body)
	if msg != "" {
		e.Message = msg
	}
	e.Details = details

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		if d, ok := parseRetryAfter(header.Get("Retry-After"), now); ok {
			e.RetryAfterMs = d.Milliseconds()
		}
	}
	return e
}

func statusError(status int) *Error {
	text := http.StatusText(status)
	if text == "" {
		text = "HTTP " + strconv.Itoa(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return New(CategoryAuth, CodeUnauthorized, text)
	case status == http.StatusForbidden:
		return New(CategoryPermission, CodeForbidden, text)
	case status == http.StatusNotFound:
		return New(CategoryNotFound, CodeNotFound, text)
	case status == http.StatusTooManyRequests:
		return New(CategoryRateLimit, CodeTooManyRequests, text)
	case status == http.StatusBadRequest:
		return New(CategoryValidation, CodeBadRequest, text)
	case status == http.StatusUnprocessableEntity:
		return New(CategoryValidation, CodeUnprocessableEntity, text)
	case status >= 500 && status <= 599:
		return New(CategoryInternal, CodeServerError, text).WithRetryable(true)
	default:
		return New(CategoryInternal, CodeHTTPError, text)
	}
}

// normalizeBody extracts a human message from the common error body shapes:
//
//	{"error": "invalid_grant", "error_description": "..."}
//	{"error": {"code": "...", "message": "..."}}
//	{"message": "..."}
//	{"detail": "...", "scimType": "..."}
//	{"errors": [{"message": "..."}]}
func normalizeBody(body []byte) (string, any) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return truncate(string(body)), nil
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return "", decoded
	}

	if s := stringField(obj, "error_description"); s != "" {
		return truncate(s), decoded
	}
	switch v := obj["error"].(type) {
	case string:
		if v != "" {
			return truncate(v), decoded
		}
	case map[string]any:
		if s := stringField(v, "message"); s != "" {
			return truncate(s), decoded
		}
		if s := stringField(v, "code"); s != "" {
			return truncate(s), decoded
		}
	}
	for _, key := range []string{"message", "detail", "title"} {
		if s := stringField(obj, key); s != "" {
			return truncate(s), decoded
		}
	}
	if list, ok := obj["errors"].([]any); ok && len(list) > 0 {
		switch first := list[0].(type) {
		case string:
			return truncate(first), decoded
		case map[string]any:
			for _, key := range []string{"message", "detail"} {
				if s := stringField(first, key); s != "" {
					return truncate(s), decoded
				}
			}
		}
	}
	return "", decoded
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
