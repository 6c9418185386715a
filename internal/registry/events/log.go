package events

import (
	"context"
	"log/slog"

	"atelier/internal/registry/models"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Publish(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		attrs := []any{
			"log_type", "event",
			"event", string(e.Kind),
			"event_id", e.ID.String(),
			"token_id", uint64(e.TokenID),
		}
		if e.RequestID != "" {
			attrs = append(attrs, "request_id", e.RequestID)
		}
		if e.Owner != nil {
			attrs = append(attrs, "owner", e.Owner.String())
		}
		if e.From != nil {
			attrs = append(attrs, "from", e.From.String(), "to", e.To.String())
		}
		if e.Recipient != nil {
			attrs = append(attrs, "recipient", e.Recipient.String(), "percentage", *e.Percentage)
		}
		if e.Version != 0 {
			attrs = append(attrs, "version", e.Version)
		}
		s.logger.InfoContext(ctx, "registry event", attrs...)
	}
	return nil
}
