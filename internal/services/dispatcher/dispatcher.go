// Package dispatcher переводит разрешённый запрос к инструменту в вызов
// внешнего генеративного сервиса, нормализует ответ и учитывает вызов в квоте.
//
// Счётчик увеличивается только после успешного ответа провайдера и только
// для пользователей без подписки. Неудачный вызов квоту не расходует и не повторяется.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/guard"
)

// ErrCapabilityFailure вызов внешнего сервиса завершился ошибкой.
var ErrCapabilityFailure = errors.New("capability failure")

// Системные инструкции инструментов.
const (
	ChatInstruction = "You are a helpful assistant."
	CodeInstruction = "You are a code generator. You must answer only in markdown code snippets. Use code comments for explanations."
)

// ChatModel модель диалога.
type ChatModel interface {
	Complete(ctx context.Context, messages []models.Message) (models.Message, error)
}

// ImageModel модель генерации изображений.
type ImageModel interface {
	GenerateImages(ctx context.Context, prompt string, n int, size string) ([]models.Image, error)
}

// PredictionModel запуск размещённых моделей (музыка, видео).
type PredictionModel interface {
	Predict(ctx context.Context, model string, input map[string]any) (any, error)
}

// Meter журнал квоты.
type Meter interface {
	Increment(ctx context.Context, userID string) (int, error)
}

// Breaker исполнение вызова под автоматическим выключателем инструмента.
type Breaker interface {
	Execute(tool models.Tool, fn func() (any, error)) (any, error)
}

// Config модели и таймауты.
type Config struct {
	MusicModel string
	VideoModel string
	// Timeout для диалога, кода и изображений.
	Timeout time.Duration
	// LongTimeout для музыки и видео.
	LongTimeout time.Duration
	// MeterTimeout ограничивает запись в журнал квоты после успешного вызова.
	MeterTimeout time.Duration
}

// Deps внешние зависимости диспетчера. Клиенты ненастроенных провайдеров могут быть nil.
type Deps struct {
	Chat        ChatModel
	Images      ImageModel
	Predictions PredictionModel
	Meter       Meter
	Breakers    Breaker
	Publisher   events.Publisher
	Metrics     *metrics.Metrics
	Log         *slog.Logger
}

// Dispatcher исполнитель вызовов инструментов.
type Dispatcher struct {
	cfg  Config
	deps Deps
}

// New создаёт диспетчер.
func New(cfg Config, deps Deps) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.LongTimeout <= 0 {
		cfg.LongTimeout = 5 * time.Minute
	}
	if cfg.MeterTimeout <= 0 {
		cfg.MeterTimeout = 5 * time.Second
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{cfg: cfg, deps: deps}
}

// TimeoutFor возвращает таймаут вызова провайдера для инструмента.
func (d *Dispatcher) TimeoutFor(tool models.Tool) time.Duration {
	if tool == models.ToolMusic || tool == models.ToolVideo {
		return d.cfg.LongTimeout
	}
	return d.cfg.Timeout
}

// Dispatch вызывает инструмент tool и возвращает нормализованный ответ.
// Вызов провайдера отвязан от отмены ctx: отключение клиента не прерывает
// уже оплачиваемую генерацию, и завершённый вызов всё равно учитывается.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, tool models.Tool, payload models.ToolRequest, decision guard.Decision) (any, error) {
	const op = "services.dispatcher.Dispatch"
	log := d.deps.Log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("tool", string(tool)),
	)

	detached := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(detached, d.TimeoutFor(tool))
	defer cancel()

	start := time.Now()
	invoke := func() (any, error) { return d.invoke(callCtx, tool, payload) }
	var (
		result any
		err    error
	)
	if d.deps.Breakers != nil {
		result, err = d.deps.Breakers.Execute(tool, invoke)
	} else {
		result, err = invoke()
	}
	if err != nil {
		d.deps.Metrics.ObserveCapability(string(tool), "failed", time.Since(start))
		log.Error("capability call failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCapabilityFailure, err)
	}
	d.deps.Metrics.ObserveCapability(string(tool), "ok", time.Since(start))

	if decision.Subscribed {
		return result, nil
	}

	meterCtx, cancelMeter := context.WithTimeout(detached, d.cfg.MeterTimeout)
	defer cancelMeter()
	count, err := d.deps.Meter.Increment(meterCtx, userID)
	if err != nil {
		log.Error("failed to meter successful call", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.deps.Metrics.UsageIncremented(string(tool))
	events.Emit(detached, d.deps.Publisher, log, events.New(events.UsageIncremented, userID, map[string]any{
		"tool":  string(tool),
		"count": count,
	}))

	return result, nil
}

func (d *Dispatcher) invoke(ctx context.Context, tool models.Tool, payload models.ToolRequest) (any, error) {
	switch req := payload.(type) {
	case *models.ChatRequest:
		return d.chat(ctx, ChatInstruction, req.Messages, req.Prompt)
	case *models.CodeRequest:
		return d.chat(ctx, CodeInstruction, req.Messages, req.Prompt)
	case *models.ImageRequest:
		return d.images(ctx, req)
	case *models.MusicRequest:
		return d.music(ctx, req)
	case *models.VideoRequest:
		return d.video(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported payload %T for tool %s", payload, tool)
	}
}

// chat собирает диалог: системная инструкция, история без системных сообщений, запрос пользователя.
func (d *Dispatcher) chat(ctx context.Context, instruction string, history []models.Message, prompt string) (models.Message, error) {
	if d.deps.Chat == nil {
		return models.Message{}, errors.New("chat provider is not configured")
	}
	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: "system", Content: instruction})
	for _, m := range history {
		if m.Content == "" || (m.Role != "user" && m.Role != "assistant") {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, models.Message{Role: "user", Content: prompt})

	return d.deps.Chat.Complete(ctx, messages)
}

func (d *Dispatcher) images(ctx context.Context, req *models.ImageRequest) ([]models.Image, error) {
	if d.deps.Images == nil {
		return nil, errors.New("image provider is not configured")
	}
	return d.deps.Images.GenerateImages(ctx, req.Prompt, int(req.Amount), req.Resolution)
}

func (d *Dispatcher) music(ctx context.Context, req *models.MusicRequest) (models.AudioResult, error) {
	if d.deps.Predictions == nil {
		return models.AudioResult{}, errors.New("music provider is not configured")
	}
	out, err := d.deps.Predictions.Predict(ctx, d.cfg.MusicModel, map[string]any{
		"prompt_a": req.Prompt,
	})
	if err != nil {
		return models.AudioResult{}, err
	}
	ref, err := outputRef(out, "audio")
	if err != nil {
		return models.AudioResult{}, err
	}
	return models.AudioResult{Audio: ref}, nil
}

func (d *Dispatcher) video(ctx context.Context, req *models.VideoRequest) (models.VideoResult, error) {
	if d.deps.Predictions == nil {
		return models.VideoResult{}, errors.New("video provider is not configured")
	}
	out, err := d.deps.Predictions.Predict(ctx, d.cfg.VideoModel, map[string]any{
		"prompt":        req.Prompt,
		"motion_module": "mm_sd_v14",
	})
	if err != nil {
		return models.VideoResult{}, err
	}
	ref, err := outputRef(out, "video")
	if err != nil {
		return models.VideoResult{}, err
	}
	return models.VideoResult{Video: ref}, nil
}

// outputRef достаёт ссылку на результат из вывода модели: строка,
// список строк (берётся первая) или объект с ключом key.
func outputRef(out any, key string) (string, error) {
	switch v := out.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				return s, nil
			}
		}
	case []string:
		for _, s := range v {
			if s != "" {
				return s, nil
			}
		}
	case map[string]any:
		if s, ok := v[key].(string); ok && s != "" {
			return s, nil
		}
		for k, item := range v {
			if s, ok := item.(string); ok && strings.EqualFold(k, key) && s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("unexpected %s output %T", key, out)
}
