package events

import (
	"context"
	"log/slog"

	"atelier/internal/registry/models"
	"atelier/pkg/platform/circuit"
)

// Breaker stops calling a failing sink after consecutive failures and probes
// it again once the cool-down has passed. Skipped batches fail with
// ErrCircuitOpen so they are still counted as delivery failures.
type Breaker struct {
	sink    Sink
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreaker(sink Sink, breaker *circuit.Breaker, logger *slog.Logger) *Breaker {
	return &Breaker{sink: sink, breaker: breaker, logger: logger}
}

func (b *Breaker) Name() string {
	return b.sink.Name()
}

func (b *Breaker) Publish(ctx context.Context, events []models.Event) error {
	if !b.breaker.Allow() {
		return &SinkError{Sink: b.sink.Name(), Err: ErrCircuitOpen}
	}
	if err := b.sink.Publish(ctx, events); err != nil {
		if _, change := b.breaker.RecordFailure(); change.Opened && b.logger != nil {
			b.logger.WarnContext(ctx, "event sink circuit opened",
				"sink", b.sink.Name(),
				"error", err,
			)
		}
		return wrapSinkErr(b.sink.Name(), err)
	}
	if _, change := b.breaker.RecordSuccess(); change.Closed && b.logger != nil {
		b.logger.InfoContext(ctx, "event sink circuit closed", "sink", b.sink.Name())
	}
	return nil
}
