// Package billingwebhook принимает вебхуки Stripe.
package billingwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v79"

	"github.com/magabrotheeeer/aihub-gateway/internal/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/webhook"
)

const (
	source       = "stripe"
	maxBodyBytes = int64(65536)
)

// EventParser проверяет подпись и разбирает событие.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (stripe.Event, error)
}

// Service применяет события оплаты.
type Service interface {
	CompleteCheckout(ctx context.Context, userID, subscriptionID string) error
	RecordPayment(ctx context.Context, subscriptionID string) error
}

// Deduper запоминает обработанные события.
type Deduper interface {
	Seen(ctx context.Context, source, eventID string) (bool, error)
	Remember(ctx context.Context, source, eventID string, ttl time.Duration) error
}

type Handler struct {
	log      *slog.Logger
	parser   EventParser
	service  Service
	deduper  Deduper
	eventTTL time.Duration
	metrics  *metrics.Metrics
}

// New создаёт обработчик. deduper и m могут быть nil.
func New(log *slog.Logger, parser EventParser, service Service, deduper Deduper, eventTTL time.Duration, m *metrics.Metrics) *Handler {
	return &Handler{
		log:      log,
		parser:   parser,
		service:  service,
		deduper:  deduper,
		eventTTL: eventTTL,
		metrics:  m,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Оформление подписки и оплата счетов
// @Tags webhooks
// @Accept json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200
// @Failure 400 {string} string "Webhook Error"
// @Failure 500 {string} string "Internal Error"
// @Router /webhooks/billing [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.billing"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		h.text(w, r, http.StatusBadRequest, "Webhook Error")
		return
	}

	event, err := h.parser.ParseEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			log.Warn("webhook signature verification failed", sl.Err(err))
			h.metrics.WebhookEvent(source, "unknown", "invalid_signature")
			h.text(w, r, http.StatusBadRequest, "Webhook Error")
			return
		}
		log.Error("webhook is not configured", sl.Err(err))
		h.text(w, r, http.StatusInternalServerError, "Internal Error")
		return
	}

	eventType := string(event.Type)
	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", eventType))

	if h.seen(r.Context(), log, event.ID) {
		log.Info("duplicate webhook event skipped")
		h.metrics.WebhookEvent(source, eventType, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	switch eventType {
	case billing.EventCheckoutCompleted:
		completed, err := billing.DecodeCheckoutSession(event)
		if err != nil {
			log.Error("failed to decode checkout session", sl.Err(err))
			h.metrics.WebhookEvent(source, eventType, "invalid_payload")
			h.text(w, r, http.StatusBadRequest, "Webhook Error")
			return
		}
		if completed.UserID == "" {
			log.Warn("checkout session without user id")
			h.metrics.WebhookEvent(source, eventType, "invalid_payload")
			h.text(w, r, http.StatusBadRequest, "User id is required")
			return
		}
		if err := h.service.CompleteCheckout(r.Context(), completed.UserID, completed.SubscriptionID); err != nil {
			log.Error("failed to complete checkout", sl.Err(err))
			h.metrics.WebhookEvent(source, eventType, "error")
			h.text(w, r, http.StatusInternalServerError, "Internal Error")
			return
		}

	case billing.EventInvoicePaid:
		subscriptionID, err := billing.DecodeInvoice(event)
		if err != nil {
			log.Error("failed to decode invoice", sl.Err(err))
			h.metrics.WebhookEvent(source, eventType, "invalid_payload")
			h.text(w, r, http.StatusBadRequest, "Webhook Error")
			return
		}
		if subscriptionID == "" {
			log.Info("invoice without subscription ignored")
			break
		}
		if err := h.service.RecordPayment(r.Context(), subscriptionID); err != nil {
			log.Error("failed to record payment", sl.Err(err))
			h.metrics.WebhookEvent(source, eventType, "error")
			h.text(w, r, http.StatusInternalServerError, "Internal Error")
			return
		}

	default:
		log.Debug("webhook event ignored")
		h.metrics.WebhookEvent(source, eventType, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	h.remember(r.Context(), log, event.ID)
	h.metrics.WebhookEvent(source, eventType, "processed")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) seen(ctx context.Context, log *slog.Logger, eventID string) bool {
	if h.deduper == nil || eventID == "" {
		return false
	}
	seen, err := h.deduper.Seen(ctx, source, eventID)
	if err != nil {
		log.Warn("failed to check webhook event", sl.Err(err))
		return false
	}
	return seen
}

func (h *Handler) remember(ctx context.Context, log *slog.Logger, eventID string) {
	if h.deduper == nil || eventID == "" {
		return
	}
	if err := h.deduper.Remember(ctx, source, eventID, h.eventTTL); err != nil {
		log.Warn("failed to remember webhook event", sl.Err(err))
	}
}

func (h *Handler) text(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.PlainText(w, r, msg)
}
