package trace

import (
	"context"
	"log/slog"
)

// Slog emits one structured log line per record.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a recorder logging to logger (slog.Default when nil).
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// Record implements Recorder.
func (s *Slog) Record(ctx context.Context, rec *Record) error {
	attrs := []slog.Attr{
		slog.String("trace_id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.String("name", rec.Name),
		slog.Duration("elapsed", rec.Elapsed),
	}
	if rec.Model != "" {
		attrs = append(attrs, slog.String("model", rec.Model))
	}
	if rec.Protocol != "" {
		attrs = append(attrs, slog.String("protocol", rec.Protocol))
	}
	for k, v := range rec.Attrs {
		attrs = append(attrs, slog.String(k, v))
	}

	if rec.Failed() {
		attrs = append(attrs, slog.String("error", rec.Err))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "call failed", attrs...)
		return nil
	}
	attrs = append(attrs, slog.Int("output_chars", len(rec.Output)))
	s.logger.LogAttrs(ctx, slog.LevelDebug, "call completed", attrs...)
	return nil
}
