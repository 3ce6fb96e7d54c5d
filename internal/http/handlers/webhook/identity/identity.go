// Package identitywebhook принимает вебхуки провайдера идентификации.
package identitywebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/webhook"
)

const (
	source       = "identity"
	maxBodyBytes = int64(65536)
)

// Verifier проверяет подпись вебхука.
type Verifier interface {
	Verify(payload []byte, headers http.Header) error
}

// Service сохраняет профиль пользователя.
type Service interface {
	SyncUser(ctx context.Context, userID, email string) error
}

// Deduper запоминает обработанные события.
type Deduper interface {
	Seen(ctx context.Context, source, eventID string) (bool, error)
	Remember(ctx context.Context, source, eventID string, ttl time.Duration) error
}

type Handler struct {
	log      *slog.Logger
	verifier Verifier
	service  Service
	deduper  Deduper
	eventTTL time.Duration
	metrics  *metrics.Metrics
}

// New создаёт обработчик. verifier == nil означает, что секрет не настроен
// и все запросы отклоняются с 500. deduper и m могут быть nil.
func New(log *slog.Logger, verifier Verifier, service Service, deduper Deduper, eventTTL time.Duration, m *metrics.Metrics) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		service:  service,
		deduper:  deduper,
		eventTTL: eventTTL,
		metrics:  m,
	}
}

// ServeHTTP godoc
// @Summary Вебхук провайдера идентификации
// @Description Зеркалирование пользователей: session.created, user.created, user.updated
// @Tags webhooks
// @Accept json
// @Param svix-id header string true "Идентификатор сообщения"
// @Param svix-timestamp header string true "Метка времени"
// @Param svix-signature header string true "Подпись"
// @Success 200
// @Failure 400 {string} string "Webhook Error"
// @Failure 500 {string} string "Internal Error"
// @Router /webhooks/identity [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.identity"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.verifier == nil {
		log.Error("identity webhook secret is not configured")
		h.text(w, r, http.StatusInternalServerError, "Internal Error")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		h.text(w, r, http.StatusBadRequest, "Webhook Error")
		return
	}

	if err := h.verifier.Verify(body, r.Header); err != nil {
		log.Warn("webhook signature verification failed", sl.Err(err))
		h.metrics.WebhookEvent(source, "unknown", "invalid_signature")
		h.text(w, r, http.StatusBadRequest, "Webhook Error")
		return
	}

	event, err := webhook.ParseIdentityEvent(body)
	if err != nil {
		log.Error("failed to parse webhook event", sl.Err(err))
		h.metrics.WebhookEvent(source, "unknown", "invalid_payload")
		h.text(w, r, http.StatusBadRequest, "Webhook Error")
		return
	}

	eventID := r.Header.Get(webhook.HeaderID)
	log = log.With(slog.String("event_id", eventID), slog.String("event_type", event.Type))

	if h.seen(r.Context(), log, eventID) {
		log.Info("duplicate webhook event skipped")
		h.metrics.WebhookEvent(source, event.Type, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	var email string
	switch event.Type {
	case webhook.SessionCreated:
	case webhook.UserCreated, webhook.UserUpdated:
		email = event.PrimaryEmail()
	default:
		log.Debug("webhook event ignored")
		h.metrics.WebhookEvent(source, event.Type, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := event.SubjectUserID()
	if userID == "" {
		log.Warn("webhook event without user id")
		h.metrics.WebhookEvent(source, event.Type, "invalid_payload")
		h.text(w, r, http.StatusBadRequest, "User id is required")
		return
	}

	if err := h.service.SyncUser(r.Context(), userID, email); err != nil {
		log.Error("failed to sync user", sl.Err(err))
		h.metrics.WebhookEvent(source, event.Type, "error")
		h.text(w, r, http.StatusInternalServerError, "Internal Error")
		return
	}

	h.remember(r.Context(), log, eventID)
	h.metrics.WebhookEvent(source, event.Type, "processed")
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
