// Package guard принимает решение о допуске вызова инструмента.
//
// Проверки выполняются строго по порядку и прерываются на первом отказе:
// аутентификация, наличие провайдера, обязательные поля запроса,
// активная подписка (она снимает проверку квоты), бесплатная квота.
// Guard только читает состояние и никогда не увеличивает счётчик.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// Reason причина отказа.
type Reason string

const (
	Unauthenticated      Reason = "unauthenticated"
	ProviderUnconfigured Reason = "provider_unconfigured"
	InvalidRequest       Reason = "invalid_request"
	QuotaExceeded        Reason = "quota_exceeded"
)

// Denial отказ в доступе. Возвращается как error и извлекается через errors.As.
type Denial struct {
	Reason Reason
	// Field имя поля запроса для InvalidRequest.
	Field string
	// Required поле отсутствует (иначе поле задано, но некорректно).
	Required bool
}

func (d *Denial) Error() string {
	if d.Reason == InvalidRequest {
		return d.Message()
	}
	return string(d.Reason)
}

// Message текст для клиента. Для всех причин, кроме InvalidRequest, тело ответа пустое.
func (d *Denial) Message() string {
	if d.Reason != InvalidRequest {
		return ""
	}
	if d.Required {
		return d.Field + " is required"
	}
	return d.Field + " is invalid"
}

// Status HTTP-статус ответа для отказа.
func (d *Denial) Status() int {
	switch d.Reason {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidRequest:
		return http.StatusBadRequest
	case QuotaExceeded:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Decision результат успешной проверки.
type Decision struct {
	// Subscribed у пользователя действующая подписка, вызов не учитывается в квоте.
	Subscribed bool
}

// Providers реестр настроенных провайдеров.
type Providers interface {
	Configured(tool models.Tool) bool
}

// Subscriptions определяет статус подписки.
type Subscriptions interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Quota журнал бесплатных вызовов.
type Quota interface {
	IsWithinLimit(ctx context.Context, userID string) (bool, error)
}

// Guard общий для всех инструментов контроль доступа.
type Guard struct {
	providers     Providers
	subscriptions Subscriptions
	quota         Quota
	validate      *validator.Validate
	metrics       *metrics.Metrics
}

// New создаёт Guard. m может быть nil.
func New(providers Providers, subscriptions Subscriptions, quota Quota, m *metrics.Metrics) *Guard {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Guard{
		providers:     providers,
		subscriptions: subscriptions,
		quota:         quota,
		validate:      v,
		metrics:       m,
	}
}

// Check проверяет вызов инструмента tool пользователем userID с телом payload.
// Перед проверкой полей в payload подставляются значения по умолчанию.
// Отказ возвращается как *Denial, ошибки хранилища возвращаются как есть.
func (g *Guard) Check(ctx context.Context, userID string, tool models.Tool, payload models.ToolRequest) (Decision, error) {
	decision, err := g.check(ctx, userID, tool, payload)

	var denial *Denial
	switch {
	case errors.As(err, &denial):
		g.metrics.GuardDecision(string(tool), string(denial.Reason))
	case err != nil:
		g.metrics.GuardDecision(string(tool), "error")
	case decision.Subscribed:
		g.metrics.GuardDecision(string(tool), "allowed_subscriber")
	default:
		g.metrics.GuardDecision(string(tool), "allowed")
	}
	return decision, err
}

func (g *Guard) check(ctx context.Context, userID string, tool models.Tool, payload models.ToolRequest) (Decision, error) {
	const op = "services.guard.Check"

	if userID == "" {
		return Decision{}, &Denial{Reason: Unauthenticated}
	}

	if !g.providers.Configured(tool) {
		return Decision{}, &Denial{Reason: ProviderUnconfigured}
	}

	if payload == nil {
		var err error
		if payload, err = tool.NewRequest(); err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	payload.ApplyDefaults()
	if denial := g.validatePayload(payload); denial != nil {
		return Decision{}, denial
	}

	active, err := g.subscriptions.IsActive(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if active {
		return Decision{Subscribed: true}, nil
	}

	within, err := g.quota.IsWithinLimit(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if !within {
		return Decision{}, &Denial{Reason: QuotaExceeded}
	}

	return Decision{Subscribed: false}, nil
}

// validatePayload возвращает отказ по первому некорректному полю в порядке объявления.
func (g *Guard) validatePayload(payload models.ToolRequest) *Denial {
	err := g.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &Denial{Reason: InvalidRequest, Field: "body"}
	}
	first := errs[0]
	return &Denial{
		Reason:   InvalidRequest,
		Field:    first.Field(),
		Required: first.Tag() == "required",
	}
}
