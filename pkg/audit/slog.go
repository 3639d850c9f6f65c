package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes each event as a structured log record.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink logs events at info level to l.
func NewSlogSink(l *slog.Logger) *SlogSink {
	return &SlogSink{logger: l, level: slog.LevelInfo}
}

// Record implements Sink.
func (s *SlogSink) Record(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, s.level, "audit", eventAttrs(e)...)
	return nil
}

// StoreBatch implements BatchWriter so SlogSink can back an AsyncSink.
func (s *SlogSink) StoreBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		s.logger.LogAttrs(ctx, s.level, "audit", eventAttrs(e)...)
	}
	return nil
}

func eventAttrs(e Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("event_id", e.ID),
		slog.String("tenant_id", e.TenantID),
		slog.String("operation", e.Operation),
		slog.String("method", e.Method),
		slog.String("url", e.URL),
		slog.String("result", string(e.Result)),
		slog.Int("attempts", e.Attempts),
		slog.Int64("duration_ms", e.DurationMs),
		slog.Time("created_at", e.CreatedAt),
	}
	if e.RunID != "" {
		attrs = append(attrs, slog.String("run_id", e.RunID))
	}
	if e.Result == ResultFailure {
		attrs = append(attrs,
			slog.String("category", e.Category),
			slog.String("code", e.Code),
			slog.String("error", e.Error),
		)
	}
	if e.HTTPStatus > 0 {
		attrs = append(attrs, slog.Int("http_status", e.HTTPStatus))
	}
	return attrs
}
