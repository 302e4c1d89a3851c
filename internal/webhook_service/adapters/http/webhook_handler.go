package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/app"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// NotificationProcessor defines the interface required by the WebhookHandler
// for processing verified deliveries. This makes testing easier by allowing
// mocks.
type NotificationProcessor interface {
	ProcessNotification(ctx context.Context, raw []byte, traceID string)
}

type WebhookHandler struct {
	processor NotificationProcessor
	secret    string
	logger    *slog.Logger
}

func NewWebhookHandler(processor NotificationProcessor, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		secret:    secret,
		logger:    logger.With("component", "webhook_handler"),
	}
}

// HandleChallenge answers the provider's one-shot verification handshake.
// Nylas requires the challenge token echoed back byte-for-byte: no quotes,
// no added whitespace. Signature verification does not apply here; the
// handshake happens before any signed body exists.
func (h *WebhookHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		h.logger.WarnContext(ctx, "Challenge request without challenge parameter")
		http.Error(w, "challenge parameter is required", http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "Answering webhook challenge handshake")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		h.logger.WarnContext(ctx, "Failed to write challenge response", "error", err)
	}
}

// HandleNotification receives signed POST deliveries. Only authentication
// and local misconfiguration affect the returned status; processing
// failures are contained so the provider sees 200 and does not redeliver.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi_middleware.GetReqID(ctx)
	traceID := uuid.New().String()
	logger := h.logger.With("request_id", requestID, "trace_id", traceID)

	if h.secret == "" {
		logger.ErrorContext(ctx, "Webhook secret not configured, rejecting delivery")
		http.Error(w, "Webhook secret not configured", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	rawPayload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read webhook request body", "error", err)
		if err.Error() == "http: request body too large" {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Error reading request body", http.StatusBadRequest)
		}
		return
	}

	signature := r.Header.Get("X-Nylas-Signature")
	if signature == "" {
		signatureFailuresCounter.WithLabelValues("missing").Inc()
		logger.WarnContext(ctx, "Delivery without signature header", "remote_addr", r.RemoteAddr)
		http.Error(w, "Missing signature header", http.StatusUnauthorized)
		return
	}

	// Verification runs over the exact raw bytes read above, never a
	// re-serialized form.
	if !app.VerifySignature(rawPayload, h.secret, signature) {
		signatureFailuresCounter.WithLabelValues("invalid").Inc()
		logger.WarnContext(ctx, "Invalid webhook signature", "remote_addr", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	logger.InfoContext(ctx, "Received verified webhook delivery", "payload_size", len(rawPayload))

	h.processor.ProcessNotification(ctx, rawPayload, traceID)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logger.WarnContext(ctx, "Failed to write webhook success response", "error", err)
	}
}
