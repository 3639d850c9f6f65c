package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/dirbridge/pkg/apierror"
	"github.com/dmitrymomot/dirbridge/pkg/audit"
	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/metering"
	"github.com/dmitrymomot/dirbridge/pkg/requestid"
	"github.com/dmitrymomot/dirbridge/pkg/tenant"
)

// Request describes one logical operation against the tenant's API.
type Request struct {
	TenantID  string
	Operation string // logical name, e.g. "createUser"
	Method    string // GET, POST, PATCH or DELETE
	URL       string // absolute, or relative to the tenant base URL
	Body      any    // encoded as JSON; []byte and json.RawMessage are sent as is
	RunID     string // optional automation run correlation id
}

type prepared struct {
	method string
	url    *url.URL
	body   []byte
}

func (r Request) prepare(cfg tenant.Config) (prepared, error) {
	var p prepared

	if r.TenantID == "" {
		return p, fmt.Errorf("%w: tenant id is required", ErrInvalidRequest)
	}
	if r.Operation == "" {
		return p, fmt.Errorf("%w: operation is required", ErrInvalidRequest)
	}

	p.method = strings.ToUpper(r.Method)
	switch p.method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete:
	case "":
		return p, fmt.Errorf("%w: method is required", ErrInvalidRequest)
	default:
		return p, fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, r.Method)
	}

	if r.URL == "" {
		return p, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := resolveURL(cfg.BaseURL, r.URL)
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	p.url = u

	switch b := r.Body.(type) {
	case nil:
	case json.RawMessage:
		p.body = b
	case []byte:
		p.body = b
	default:
		if p.body, err = json.Marshal(b); err != nil {
			return p, fmt.Errorf("%w: encode body: %w", ErrInvalidRequest, err)
		}
	}
	if len(p.body) > 0 && !json.Valid(p.body) {
		return p, fmt.Errorf("%w: body is not valid json", ErrInvalidRequest)
	}
	return p, nil
}

func resolveURL(base, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() {
		if base == "" {
			return nil, fmt.Errorf("relative url %q without tenant base url", ref)
		}
		b, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		u = b.ResolveReference(&url.URL{
			Path:     strings.TrimPrefix(u.Path, "/"),
			RawPath:  strings.TrimPrefix(u.RawPath, "/"),
			RawQuery: u.RawQuery,
		})
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", ref)
	}
	return u, nil
}

// Execute runs one logical operation: rate limit check, token acquisition,
// then up to Retry.MaxAttempts outbound calls with backoff between
// retryable failures. The returned error is non-nil only for ErrInvalidRequest.
func (e *Executor) Execute(ctx context.Context, req Request, cfg tenant.Config) (*OperationResponse[json.RawMessage], error) {
	p, err := req.prepare(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.RateLimits.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	policy := cfg.Retry
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	ctx = tenant.WithID(ctx, req.TenantID)
	log := e.logger.With(
		logger.Component("executor"),
		logger.Operation(req.Operation),
		logger.RunID(req.RunID),
	)

	run := &execution{
		req:   req,
		p:     p,
		start: e.clock.Now(),
	}

	decision, err := e.limiter.CheckAndConsume(ctx, req.TenantID, cfg.RateLimits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !decision.Allowed {
		log.InfoContext(ctx, "operation rate limited", slog.Int64("retry_after_ms", decision.RetryAfterMs))
		return e.finish(ctx, run, nil, apierror.RateLimited(decision.RetryAfterMs)), nil
	}

	ts, err := e.tokens.GetValidToken(ctx, req.TenantID, cfg.OAuth)
	if err != nil {
		if ctx.Err() != nil {
			return e.finish(ctx, run, nil, apierror.Canceled(ctx.Err())), nil
		}
		log.WarnContext(ctx, "no usable token", logger.Error(err))
		return e.finish(ctx, run, nil, apierror.Unauthenticated(err)), nil
	}

	for n := 1; ; n++ {
		run.attempts = n
		data, failure := e.attempt(ctx, p, ts.Authorization(), cfg.Timeouts)
		if failure == nil {
			return e.finish(ctx, run, data, nil), nil
		}
		if ctx.Err() != nil {
			return e.finish(ctx, run, nil, apierror.Canceled(ctx.Err())), nil
		}
		if !failure.Retryable || n >= policy.MaxAttempts {
			return e.finish(ctx, run, nil, failure), nil
		}

		delay := backoff(policy, n, failure)
		log.WarnContext(ctx, "attempt failed, retrying",
			logger.Attempt(n),
			logger.Category(string(failure.Category)),
			logger.StatusCode(failure.HTTPStatus),
			slog.Duration("backoff", delay),
			logger.Error(failure),
		)

		timer := e.clock.Timer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return e.finish(ctx, run, nil, apierror.Canceled(ctx.Err())), nil
		case <-timer.C:
		}
	}
}

// backoff returns the pause after failed attempt n. A Retry-After hint from
// the server raises the delay, never beyond the policy maximum.
func backoff(policy tenant.RetryPolicy, n int, failure *apierror.Error) time.Duration {
	delay := policy.Delay(n)
	if hint := failure.RetryAfter(); hint > delay {
		delay = hint
	}
	if limit := policy.MaxDelay(); limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

// attempt performs one HTTP exchange. The returned body is nil for empty
// 2xx responses.
func (e *Executor) attempt(ctx context.Context, p prepared, authorization string, timeouts tenant.Timeouts) (json.RawMessage, *apierror.Error) {
	if d := timeouts.Request(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var body io.Reader
	if len(p.body) > 0 {
		body = bytes.NewReader(p.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, p.method, p.url.String(), body)
	if err != nil {
		return nil, apierror.Classify(err)
	}
	httpReq.Header.Set("Authorization", authorization)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	if id, ok := requestid.FromContext(ctx); ok {
		httpReq.Header.Set(requestid.Header, id)
	}

	resp, err := e.client(timeouts.Connection()).Do(httpReq)
	if err != nil {
		return nil, apierror.Classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, apierror.Classify(err)
	}
	if int64(len(raw)) > e.maxBody {
		return nil, apierror.Classify(fmt.Errorf("%w: response body exceeds %d bytes", apierror.ErrResponseShape, e.maxBody)).
			WithDetails(map[string]any{"httpStatus": resp.StatusCode})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(resp.StatusCode, resp.Header, raw)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, apierror.Classify(fmt.Errorf("%w: %s returned a non-json body", apierror.ErrResponseShape, resp.Status))
	}
	return json.RawMessage(raw), nil
}

type execution struct {
	req      Request
	p        prepared
	start    time.Time
	attempts int
}

func (e *Executor) finish(ctx context.Context, run *execution, data json.RawMessage, failure *apierror.Error) *OperationResponse[json.RawMessage] {
	now := e.clock.Now()
	elapsed := now.Sub(run.start)

	resp := &OperationResponse[json.RawMessage]{
		Success: failure == nil,
		Metadata: Metadata{
			Operation:       run.req.Operation,
			TenantID:        run.req.TenantID,
			RunID:           run.req.RunID,
			ExecutionTimeMs: elapsed.Milliseconds(),
			Timestamp:       now,
			Attempts:        run.attempts,
		},
	}
	if failure != nil {
		resp.Error = failure
	} else {
		resp.Data = data
	}

	e.record(context.WithoutCancel(ctx), run, resp, elapsed)
	return resp
}

// record reports the outcome to the sinks. Sink failures are logged and
// otherwise ignored.
func (e *Executor) record(ctx context.Context, run *execution, resp *OperationResponse[json.RawMessage], elapsed time.Duration) {
	ev := audit.NewEvent(run.req.TenantID, run.req.Operation, resp.Metadata.Timestamp)
	ev.RunID = run.req.RunID
	ev.Method = run.p.method
	ev.URL = auditURL(run.p.url)
	ev.Attempts = run.attempts
	ev.DurationMs = resp.Metadata.ExecutionTimeMs
	ev.Result = audit.ResultSuccess

	usage := metering.Event{
		TenantID:  run.req.TenantID,
		Operation: run.req.Operation,
		Success:   resp.Success,
		Attempts:  run.attempts,
		Duration:  elapsed,
		At:        resp.Metadata.Timestamp,
	}

	if resp.Error != nil {
		ev.Result = audit.ResultFailure
		ev.Category = string(resp.Error.Category)
		ev.Code = resp.Error.Code
		ev.Error = resp.Error.Message
		ev.HTTPStatus = resp.Error.HTTPStatus
		usage.Category = string(resp.Error.Category)
	}

	e.safely(ctx, "audit", func() error { return e.audit.Record(ctx, ev) })
	e.safely(ctx, "metering", func() error { return e.meter.Record(ctx, usage) })
}

func (e *Executor) safely(ctx context.Context, sink string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "sink panicked",
				logger.Component("executor"),
				slog.String("sink", sink),
				slog.Any("panic", r),
			)
		}
	}()
	if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.WarnContext(ctx, "sink failed",
			logger.Component("executor"),
			slog.String("sink", sink),
			logger.Error(err),
		)
	}
}

// auditURL drops the query string, which may carry user attributes.
func auditURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.RawQuery = ""
	c.User = nil
	c.Fragment = ""
	return c.String()
}

// Do executes req and decodes a successful body into T.
func Do[T any](ctx context.Context, e *Executor, req Request, cfg tenant.Config) (*OperationResponse[T], error) {
	raw, err := e.Execute(ctx, req, cfg)
	if err != nil {
		return nil, err
	}
	return Decode[T](raw), nil
}
