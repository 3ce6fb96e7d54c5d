// Package billing содержит обработчик ссылки на оплату подписки.
package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/response"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

// Service выдаёт ссылку на оформление подписки или портал.
type Service interface {
	BillingURL(ctx context.Context, userID string) (string, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Ссылка на оплату
// @Description Ссылка на портал Stripe для существующего клиента, иначе на оформление подписки
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.URL
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "Internal Error"
// @Router /billing [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	url, err := h.service.BillingURL(r.Context(), middlewarectx.UserIDFromContext(r.Context()))
	if err != nil {
		log.Error("failed to create billing session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.PlainText(w, r, "Internal Error")
		return
	}

	render.JSON(w, r, response.URL{URL: url})
}
