package logger

import (
	"context"
	"log/slog"
	"maps"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// ContextHandler wraps a slog.Handler and adds attributes pulled from the
// record's context (tenant, run id, request id) at Handle time. A key already
// set on the record or bound with Logger.With wins over the extracted one,
// so call sites that log logger.TenantID explicitly do not emit it twice.
type ContextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
	bound      map[string]struct{} // top-level keys from WithAttrs
	grouped    bool
}

// NewContextHandler wraps next. Nil extractors are dropped.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) *ContextHandler {
	h := &ContextHandler{next: next}
	for _, ex := range extractors {
		if ex != nil {
			h.extractors = append(h.extractors, ex)
		}
	}
	return h
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if len(h.extractors) == 0 || ctx == nil {
		return h.next.Handle(ctx, rec)
	}

	var seen map[string]struct{}
	extra := make([]slog.Attr, 0, len(h.extractors))
	for _, ex := range h.extractors {
		attr, ok := ex(ctx)
		if !ok {
			continue
		}
		if seen == nil {
			seen = make(map[string]struct{}, len(h.bound)+rec.NumAttrs())
			maps.Copy(seen, h.bound)
			rec.Attrs(func(a slog.Attr) bool {
				seen[a.Key] = struct{}{}
				return true
			})
		}
		if _, dup := seen[attr.Key]; dup {
			continue
		}
		seen[attr.Key] = struct{}{}
		extra = append(extra, attr)
	}

	if len(extra) > 0 {
		rec = rec.Clone()
		rec.AddAttrs(extra...)
	}
	return h.next.Handle(ctx, rec)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := &ContextHandler{
		next:       h.next.WithAttrs(attrs),
		extractors: h.extractors,
		bound:      h.bound,
		grouped:    h.grouped,
	}
	if !h.grouped && len(attrs) > 0 {
		c.bound = make(map[string]struct{}, len(h.bound)+len(attrs))
		maps.Copy(c.bound, h.bound)
		for _, a := range attrs {
			c.bound[a.Key] = struct{}{}
		}
	}
	return c
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		next:       h.next.WithGroup(name),
		extractors: h.extractors,
		bound:      h.bound,
		grouped:    true,
	}
}
