// Package tool содержит общий HTTP-обработчик вызова генеративного инструмента.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/guard"
)

const maxBodyBytes = 1 << 20

// Guard принимает решение о допуске вызова.
type Guard interface {
	Check(ctx context.Context, userID string, tool models.Tool, payload models.ToolRequest) (guard.Decision, error)
}

// Dispatcher выполняет вызов инструмента.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, tool models.Tool, payload models.ToolRequest, decision guard.Decision) (any, error)
}

// Handler обработчик одного инструмента.
type Handler struct {
	log        *slog.Logger
	tool       models.Tool
	guard      Guard
	dispatcher Dispatcher
}

// New создаёт обработчик инструмента tool.
func New(log *slog.Logger, tool models.Tool, g Guard, d Dispatcher) *Handler {
	return &Handler{
		log:        log,
		tool:       tool,
		guard:      g,
		dispatcher: d,
	}
}

// ServeHTTP godoc
// @Summary Вызов генеративного инструмента
// @Description Чат, генерация кода, изображений, музыки и видео. Бесплатно доступно 5 вызовов, подписка снимает лимит.
// @Tags tools
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChatRequest true "Тело запроса инструмента"
// @Success 200 {object} models.Message
// @Failure 400 {string} string "<field> is required"
// @Failure 401 "Unauthorized"
// @Failure 403 "Free limit exhausted"
// @Failure 500 {string} string "Internal Error"
// @Router /conversation [post]
// @Router /code [post]
// @Router /image [post]
// @Router /music [post]
// @Router /video [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tool"

	log := h.log.With(
		slog.String("op", op),
		slog.String("tool", string(h.tool)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	userID := middlewarectx.UserIDFromContext(r.Context())

	payload, err := h.decode(w, r)
	if err != nil {
		log.Error("failed to build request", sl.Err(err))
		internalError(w, r)
		return
	}

	decision, err := h.guard.Check(r.Context(), userID, h.tool, payload)
	if err != nil {
		var denial *guard.Denial
		if errors.As(err, &denial) {
			log.Info("request denied", slog.String("reason", string(denial.Reason)))
			deny(w, r, denial)
			return
		}
		log.Error("access check failed", sl.Err(err))
		internalError(w, r)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), userID, h.tool, payload, decision)
	if err != nil {
		log.Error("capability failed", sl.Err(err))
		internalError(w, r)
		return
	}

	render.JSON(w, r, result)
}

// decode читает тело запроса. Некорректное или пустое тело даёт пустой запрос:
// о недостающих полях сообщит guard, уже после проверки аутентификации.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.ToolRequest, error) {
	payload, err := h.tool.NewRequest()
	if err != nil {
		return nil, err
	}
	if r.Body == nil {
		return payload, nil
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(payload); err != nil {
		h.log.Debug("request body ignored", slog.String("tool", string(h.tool)), sl.Err(err))
		return h.tool.NewRequest()
	}
	return payload, nil
}

func deny(w http.ResponseWriter, r *http.Request, denial *guard.Denial) {
	if msg := denial.Message(); msg != "" {
		render.Status(r, denial.Status())
		render.PlainText(w, r, msg)
		return
	}
	w.WriteHeader(denial.Status())
}

func internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.PlainText(w, r, "Internal Error")
}
