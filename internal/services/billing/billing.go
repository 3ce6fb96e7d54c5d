// Package billing связывает пользователей шлюза с подписками Stripe.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripegw "github.com/magabrotheeeer/aihub-gateway/internal/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage"
)

// ErrMissingUserID событие оплаты не содержит идентификатора пользователя.
var ErrMissingUserID = errors.New("user id is required")

// Store хранилище подписок и профилей.
type Store interface {
	GetSubscription(ctx context.Context, userID string) (*models.SubscriptionRecord, error)
	UpsertSubscription(ctx context.Context, rec models.SubscriptionRecord) error
	UpdateSubscriptionPeriod(ctx context.Context, subscriptionID, priceID string, periodEnd time.Time) (int, error)
	GetUser(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Gateway операции Stripe, нужные сервису.
type Gateway interface {
	CheckoutURL(ctx context.Context, userID, email string) (string, error)
	PortalURL(ctx context.Context, customerID string) (string, error)
	Subscription(ctx context.Context, id string) (*stripegw.SubscriptionDetails, error)
}

// Service сервис оплаты.
type Service struct {
	log       *slog.Logger
	store     Store
	gateway   Gateway
	publisher events.Publisher
}

// New создаёт сервис. publisher может быть nil.
func New(log *slog.Logger, store Store, gateway Gateway, publisher events.Publisher) *Service {
	return &Service{
		log:       log,
		store:     store,
		gateway:   gateway,
		publisher: publisher,
	}
}

// BillingURL возвращает ссылку на портал, если у пользователя уже есть
// клиент Stripe, иначе ссылку на оформление подписки.
func (s *Service) BillingURL(ctx context.Context, userID string) (string, error) {
	const op = "billing.Service.BillingURL"

	rec, err := s.store.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if rec != nil && rec.CustomerID != "" {
		url, err := s.gateway.PortalURL(ctx, rec.CustomerID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return url, nil
	}

	var email string
	user, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		email = user.Email
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.log.Warn("failed to load user profile", slog.String("op", op), sl.Err(err))
	}

	url, err := s.gateway.CheckoutURL(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

// CompleteCheckout сохраняет подписку после успешного оформления.
func (s *Service) CompleteCheckout(ctx context.Context, userID, subscriptionID string) error {
	const op = "billing.Service.CompleteCheckout"
	if userID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingUserID)
	}

	details, err := s.gateway.Subscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec := models.SubscriptionRecord{
		UserID:           userID,
		CustomerID:       details.CustomerID,
		SubscriptionID:   details.ID,
		PriceID:          details.PriceID,
		CurrentPeriodEnd: details.CurrentPeriodEnd,
	}
	if err := s.store.UpsertSubscription(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emit(ctx, rec)
	return nil
}

// RecordPayment продлевает период подписки после оплаты счёта.
// Если подписка ещё не сохранена, она создаётся по userId из метаданных.
func (s *Service) RecordPayment(ctx context.Context, subscriptionID string) error {
	const op = "billing.Service.RecordPayment"
	log := s.log.With(slog.String("op", op), slog.String("subscription_id", subscriptionID))

	details, err := s.gateway.Subscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.store.UpdateSubscriptionPeriod(ctx, details.ID, details.PriceID, details.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rec := models.SubscriptionRecord{
		UserID:           details.UserID,
		CustomerID:       details.CustomerID,
		SubscriptionID:   details.ID,
		PriceID:          details.PriceID,
		CurrentPeriodEnd: details.CurrentPeriodEnd,
	}
	if n == 0 {
		if details.UserID == "" {
			log.Warn("payment for unknown subscription without user id")
			return nil
		}
		if err := s.store.UpsertSubscription(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.emit(ctx, rec)
	return nil
}

func (s *Service) emit(ctx context.Context, rec models.SubscriptionRecord) {
	events.Emit(ctx, s.publisher, s.log, events.New(events.SubscriptionUpdated, rec.UserID, map[string]any{
		"subscription_id":    rec.SubscriptionID,
		"price_id":           rec.PriceID,
		"current_period_end": rec.CurrentPeriodEnd,
	}))
}
