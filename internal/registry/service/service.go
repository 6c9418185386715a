// Package service implements the token registry: the orchestrator that checks
// admin and pause state, validates input, updates the record and its owner
// index inside one store transaction, and publishes the resulting events.
//
// Every mutation takes the caller identity as an explicit argument. A rejected
// call returns a *models.Error carrying the numeric rejection code and leaves
// no state behind; events are published only after a successful commit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atelier/internal/registry/events"
	"atelier/internal/registry/metrics"
	"atelier/internal/registry/models"
	"atelier/internal/registry/store"
	"atelier/pkg/domain"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/sentinel"
	"atelier/pkg/requestcontext"
)

const tracerName = "atelier/registry"

// Operation names used for spans, metrics, and logs.
const (
	OpTransferAdmin  = "transfer_admin"
	OpSetPaused      = "set_paused"
	OpMint           = "mint"
	OpTransfer       = "transfer"
	OpApprove        = "approve"
	OpRevokeApproval = "revoke_approval"
	OpBurn           = "burn"
	OpUpdateMetadata = "update_metadata"
	OpFreezeMetadata = "freeze_metadata"
)

// Service orchestrates registry mutations and reads.
type Service struct {
	store           store.Store
	sink            events.Sink
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	ownerIndexLimit int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSink sets the collaborator notified after each successful mutation.
func WithSink(sink events.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithOwnerIndexLimit caps how many records one identity may hold. Zero means
// unlimited; exceeding the cap rejects the call with code 109.
func WithOwnerIndexLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ownerIndexLimit = n
		}
	}
}

// New constructs a Service over an initialized store.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// mutation is the body of a registry call. It runs inside the store
// transaction and returns the events to publish once the call commits.
type mutation func(ctx context.Context, tx store.Tx) ([]models.Event, error)

func (s *Service) mutate(ctx context.Context, op string, caller domain.Address, attrs []attribute.KeyValue, fn mutation) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registry."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs, attribute.String("registry.caller", caller.String()))...),
	)
	defer span.End()

	var emitted []models.Event
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		evs, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		emitted = evs
		return nil
	})
	err = translate(err)
	s.observe(ctx, op, caller, err, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")

	s.publish(ctx, emitted)
	return nil
}

// translate keeps registry rejections and coded errors as they are and turns
// anything else from the store into an internal error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := models.CodeOf(err); ok {
		return err
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry state unavailable")
}

func (s *Service) observe(ctx context.Context, op string, caller domain.Address, err error, start time.Time) {
	outcome := metrics.OutcomeOK
	code, rejected := models.CodeOf(err)
	switch {
	case err == nil:
	case rejected:
		outcome = metrics.RejectionOutcome(int(code))
	default:
		outcome = metrics.OutcomeError
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, outcome, start)
	}
	if s.logger == nil || err == nil {
		return
	}
	args := []any{
		"operation", op,
		"caller", caller.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}
	if rejected {
		s.logger.WarnContext(ctx, "registry call rejected", append(args, "code", int(code))...)
		return
	}
	s.logger.ErrorContext(ctx, "registry call failed", args...)
}

// publish stamps and delivers a committed call's events. Delivery failures are
// logged and counted; the call has already succeeded.
func (s *Service) publish(ctx context.Context, evs []models.Event) {
	if len(evs) == 0 {
		return
	}
	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)
	for i := range evs {
		evs[i].At = now
		evs[i].RequestID = requestID
	}
	for _, e := range evs {
		s.logAudit(ctx, string(e.Kind), "token_id", uint64(e.TokenID), "event_id", e.ID.String())
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(context.WithoutCancel(ctx), evs); err != nil {
		failed := events.FailedSinks(err)
		if len(failed) == 0 {
			failed = []string{s.sink.Name()}
		}
		for _, name := range failed {
			if s.metrics != nil {
				s.metrics.IncrementPublishFailure(name)
			}
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "event publish failed",
				"sinks", failed,
				"events", len(evs),
				"error", err,
				"request_id", requestID,
			)
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// loadToken resolves id inside tx, mapping a missing record to code 102.
func loadToken(ctx context.Context, tx store.Reader, id domain.TokenID) (*models.Token, error) {
	token, err := tx.Token(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Reject(models.ErrCodeTokenNotFound, "token not found")
		}
		return nil, err
	}
	return token, nil
}

// activeControl loads the control state and rejects the call while paused.
func activeControl(ctx context.Context, tx store.Tx) (models.Control, error) {
	control, err := tx.Control(ctx)
	if err != nil {
		return models.Control{}, err
	}
	if err := control.RequireActive(); err != nil {
		return models.Control{}, err
	}
	return control, nil
}

// ensureRoom rejects with 109 when owner cannot take one more record.
func (s *Service) ensureRoom(ctx context.Context, tx store.Tx, owner domain.Address, id domain.TokenID) error {
	if s.ownerIndexLimit == 0 {
		return nil
	}
	owned, err := tx.OwnedTokens(ctx, owner)
	if err != nil {
		return err
	}
	_, err = owned.Append(id, s.ownerIndexLimit)
	return err
}

func tokenAttr(id domain.TokenID) attribute.KeyValue {
	return attribute.Int64("registry.token_id", int64(id))
}

func tokenAttrs(id domain.TokenID) []attribute.KeyValue {
	return []attribute.KeyValue{tokenAttr(id)}
}
