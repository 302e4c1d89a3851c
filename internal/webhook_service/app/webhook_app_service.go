package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/domain"
)

// Event types that carry a message worth processing. Everything else is
// acknowledged and ignored.
const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
)

// MessageFetcher fetches a full message record from the provider API.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, grantID, messageID string) (*domain.MessageRecord, error)
}

// OrderCreator performs the downstream create-order call. It returns false
// with a nil error when dispatch was skipped because the order system is
// not configured; that is an expected no-op, not a failure.
type OrderCreator interface {
	CreateOrder(ctx context.Context, fields domain.ExtractedFields) (bool, error)
}

// Service orchestrates one webhook delivery: parse and normalize the
// notification, resolve full message content, extract lead fields and hand
// them to the order dispatcher. All downstream failures are contained and
// logged; the caller always acknowledges the provider with 200.
type Service struct {
	fetcher         MessageFetcher
	orders          OrderCreator
	validate        *validator.Validate
	dispatchTimeout time.Duration
	logger          *slog.Logger
}

func NewService(fetcher MessageFetcher, orders OrderCreator, validate *validator.Validate, dispatchTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		fetcher:         fetcher,
		orders:          orders,
		validate:        validate,
		dispatchTimeout: dispatchTimeout,
		logger:          logger.With("component", "webhook_service"),
	}
}

// ProcessNotification handles one verified POST delivery. The order
// dispatch runs detached so the webhook acknowledgement never waits on the
// order system; its outcome only affects logs and metrics.
func (s *Service) ProcessNotification(ctx context.Context, raw []byte, traceID string) {
	logger := s.logger.With("trace_id", traceID)

	var n domain.InboundNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		logger.ErrorContext(ctx, "Failed to decode notification payload", "error", err)
		return
	}

	notificationsReceivedCounter.WithLabelValues(n.Type).Inc()
	logger = logger.With("event_type", n.Type)

	if err := s.validate.StructCtx(ctx, &n); err != nil {
		logger.WarnContext(ctx, "Notification failed validation", "error", err)
		return
	}

	if n.Type != EventMessageCreated && n.Type != EventMessageUpdated {
		logger.DebugContext(ctx, "Ignoring event type")
		return
	}

	rec, ok := n.Normalize()
	if !ok {
		logger.WarnContext(ctx, "Notification carried no message data")
		return
	}

	rec = s.resolve(ctx, rec, logger)

	fields := domain.Extract(rec)
	if !fields.HasLead() {
		logger.InfoContext(ctx, "No company or domain extracted, skipping order",
			"message_id", rec.ID,
			"has_email", fields.SalespersonEmail != "")
		ordersDispatchedCounter.WithLabelValues("skipped").Inc()
		return
	}

	s.dispatchOrder(fields, logger)
}

// resolve upgrades a stub or bodiless record with one fetch by id/grant.
// A failed or empty refetch degrades to the record already in hand; fetch
// errors never abort webhook handling.
func (s *Service) resolve(ctx context.Context, rec domain.MessageRecord, logger *slog.Logger) domain.MessageRecord {
	if rec.HasBody() || !rec.CanFetch() {
		return rec
	}

	fetched, err := s.fetcher.FetchMessage(ctx, rec.GrantID, rec.ID)
	if err != nil {
		messageFetchesCounter.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "Message fetch failed, continuing with partial record",
			"message_id", rec.ID, "error", err)
		return rec
	}
	messageFetchesCounter.WithLabelValues("ok").Inc()

	if fetched == nil {
		return rec
	}
	if rec.IsStub() || fetched.HasBody() {
		return *fetched
	}
	// Refetch came back bodiless too; keep the original partial record.
	return rec
}

func (s *Service) dispatchOrder(fields domain.ExtractedFields, logger *slog.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		dispatched, err := s.orders.CreateOrder(ctx, fields)
		switch {
		case err != nil:
			ordersDispatchedCounter.WithLabelValues("error").Inc()
			logger.Error("Order dispatch failed",
				"organization", fields.OrganizationName,
				"domain", fields.Domain,
				"error", err)
		case !dispatched:
			ordersDispatchedCounter.WithLabelValues("skipped").Inc()
			logger.Info("Order dispatch skipped, order system not configured")
		default:
			ordersDispatchedCounter.WithLabelValues("ok").Inc()
			logger.Info("Order dispatched",
				"organization", fields.OrganizationName,
				"domain", fields.Domain)
		}
	}()
}
