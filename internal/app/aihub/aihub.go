package aihub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/aihub-gateway/internal/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/cache"
	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/health"
	billingwebhook "github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/webhook/billing"
	identitywebhook "github.com/magabrotheeeer/aihub-gateway/internal/http/handlers/webhook/identity"
	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/migrations"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/provider"
	"github.com/magabrotheeeer/aihub-gateway/internal/provider/openai"
	"github.com/magabrotheeeer/aihub-gateway/internal/provider/replicate"
	billingservice "github.com/magabrotheeeer/aihub-gateway/internal/services/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/dispatcher"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/guard"
	identityservice "github.com/magabrotheeeer/aihub-gateway/internal/services/identity"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/subscription"
	"github.com/magabrotheeeer/aihub-gateway/internal/services/usage"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage/postgresql"
	"github.com/magabrotheeeer/aihub-gateway/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *postgresql.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища, применяет миграции и собирает HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.aihub.New"

	db, err := postgresql.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetEventQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.ch = ch
		publisher = events.NewAMQPPublisher(ch, cfg.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, domain events are disabled")
	}

	var usageStore usage.Store = db
	if cfg.UsageBackend == config.UsageBackendRedis {
		usageStore = cacheRedis
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	deps, err := Build(cfg, logger, Stores{
		Usage:         usageStore,
		Subscriptions: db,
		Users:         db,
		Deduper:       cacheRedis,
	}, publisher, m)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	deps.Health = map[string]health.Pinger{
		"postgres": db,
		"redis":    cacheRedis,
	}

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      NewRouter(deps),
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout,
	}
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))
	return app, nil
}

// Stores хранилища приложения.
type Stores struct {
	Usage         usage.Store
	Subscriptions interface {
		subscription.Store
		billingservice.Store
	}
	Users   identityservice.Store
	Deduper billingwebhook.Deduper
}

// Build собирает сервисы и обработчики поверх готовых хранилищ.
// Клиенты провайдеров создаются только для заданных ключей.
func Build(cfg *config.Config, logger *slog.Logger, stores Stores, publisher events.Publisher, m *metrics.Metrics) (Deps, error) {
	const op = "app.aihub.Build"

	ledger := usage.NewLedger(stores.Usage, logger)
	resolver := subscription.NewResolver(stores.Subscriptions)
	registry := provider.NewRegistry(cfg.Providers)

	dispatcherDeps := dispatcher.Deps{
		Meter:     ledger,
		Publisher: publisher,
		Metrics:   m,
		Log:       logger,
		Breakers: provider.NewBreakers(provider.BreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			OpenTimeout:      cfg.BreakerOpenTimeout,
		}, logger, m),
	}
	if registry.Configured(models.ToolChat) {
		client := openai.New(cfg.Providers)
		dispatcherDeps.Chat = client
		dispatcherDeps.Images = client
	}
	if registry.Configured(models.ToolMusic) {
		client, err := replicate.New(cfg.ReplicateAPIToken)
		if err != nil {
			return Deps{}, fmt.Errorf("%s: %w", op, err)
		}
		dispatcherDeps.Predictions = client
	}

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.Issuer, cfg.TokenTTL)

	var verifier identitywebhook.Verifier
	if cfg.Identity.WebhookSecret != "" {
		v, err := webhook.NewIdentityVerifier(cfg.Identity.WebhookSecret)
		if err != nil {
			return Deps{}, fmt.Errorf("%s: %w", op, err)
		}
		verifier = v
	} else {
		logger.Warn("identity webhook secret is empty, identity webhooks are rejected")
	}

	gateway := billing.New(cfg.Stripe, nil)
	billingSvc := billingservice.New(logger, stores.Subscriptions, gateway, publisher)
	identitySvc := identityservice.New(logger, stores.Users, publisher)

	return Deps{
		Log:    logger,
		Tokens: tokens,
		Guard:  guard.New(registry, resolver, ledger, m),
		Dispatcher: dispatcher.New(dispatcher.Config{
			MusicModel:   cfg.MusicModel,
			VideoModel:   cfg.VideoModel,
			Timeout:      cfg.RequestTimeout,
			LongTimeout:  cfg.LongRequestTimeout,
			MeterTimeout: cfg.UsageTimeout,
		}, dispatcherDeps),
		Usage:           UsageStatus{Ledger: ledger, Subscriptions: resolver},
		Billing:         billingSvc,
		BillingWebhook:  billingwebhook.New(logger, gateway, billingSvc, stores.Deduper, cfg.EventTTL, m),
		IdentityWebhook: identitywebhook.New(logger, verifier, identitySvc, stores.Deduper, cfg.EventTTL, m),
		Limiter:         middlewarectx.NewKeyedLimiter(rate.Limit(cfg.RPS), cfg.Burst, cfg.IdleTTL),
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
