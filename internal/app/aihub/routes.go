// Package aihub собирает HTTP-приложение шлюза.
package aihub

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	billinghandler "github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/health"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/tool"
	usagehandler "github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/usage"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/usage"
)

// Deps зависимости маршрутов.
type Deps struct {
	Log             *slog.Logger
	Tokens          middlewarectx.TokenParser
	Guard           tool.Guard
	Dispatcher      tool.Dispatcher
	Usage           usagehandler.Service
	Billing         billinghandler.Service
	BillingWebhook  http.Handler
	IdentityWebhook http.Handler
	Health          map[string]health.Pinger
	Limiter         *middlewarectx.KeyedLimiter
	// Gatherer источник метрик для /metrics, по умолчанию глобальный реестр.
	Gatherer prometheus.Gatherer
}

// toolRoutes пути инструментов.
var toolRoutes = map[string]models.Tool{
	"/conversation": models.ToolChat,
	"/code":         models.ToolCode,
	"/image":        models.ToolImage,
	"/music":        models.ToolMusic,
	"/video":        models.ToolVideo,
}

// NewRouter регистрирует все маршруты приложения.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(d.Log, d.Health).ServeHTTP)

		// Вебхуки проверяют подпись сами
		r.Post("/webhooks/billing", d.BillingWebhook.ServeHTTP)
		r.Post("/webhooks/identity", d.IdentityWebhook.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Identity(d.Tokens, d.Log))
			if d.Limiter != nil {
				r.Use(middlewarectx.RateLimit(d.Limiter, d.Log))
			}

			for path, t := range toolRoutes {
				r.Post(path, tool.New(d.Log, t, d.Guard, d.Dispatcher).ServeHTTP)
			}

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireUser)
				r.Get("/usage", usagehandler.New(d.Log, d.Usage).ServeHTTP)
				r.Get("/billing", billinghandler.New(d.Log, d.Billing).ServeHTTP)
			})
		})
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r
}

// UsageStatus сводка использования с учётом подписки.
type UsageStatus struct {
	Ledger        *usage.Ledger
	Subscriptions usage.ActiveChecker
}

func (u UsageStatus) Status(ctx context.Context, userID string) (models.UsageStatus, error) {
	return u.Ledger.Status(ctx, userID, u.Subscriptions)
}
