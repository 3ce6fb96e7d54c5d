// Package usage содержит обработчик сводки использования бесплатного лимита.
package usage

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/response"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// Service возвращает сводку использования.
type Service interface {
	Status(ctx context.Context, userID string) (models.UsageStatus, error)
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
// @Summary Сводка использования
// @Description Число использованных бесплатных вызовов, лимит и статус подписки
// @Tags usage
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UsageStatus}
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} response.ErrorResponse
// @Router /usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	status, err := h.service.Status(r.Context(), middlewarectx.UserIDFromContext(r.Context()))
	if err != nil {
		log.Error("failed to get usage status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get usage status"))
		return
	}

	render.JSON(w, r, response.OKWithData(status))
}
