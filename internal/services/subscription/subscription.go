// Package subscription определяет, есть ли у пользователя действующая платная подписка.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage"
)

// GracePeriod сколько подписка считается действующей после окончания оплаченного периода.
const GracePeriod = 24 * time.Hour

// Store хранилище подписок.
type Store interface {
	GetSubscription(ctx context.Context, userID string) (*models.SubscriptionRecord, error)
}

// Resolver вычисляет статус подписки при каждом обращении, без кеширования.
type Resolver struct {
	store Store
	now   func() time.Time
}

// Option настройка Resolver.
type Option func(*Resolver)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver создаёт Resolver поверх хранилища.
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get возвращает подписку пользователя или nil, если её никогда не было.
func (r *Resolver) Get(ctx context.Context, userID string) (*models.SubscriptionRecord, error) {
	const op = "services.subscription.Get"
	rec, err := r.store.GetSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// IsActive сообщает, действует ли подписка пользователя сейчас.
func (r *Resolver) IsActive(ctx context.Context, userID string) (bool, error) {
	const op = "services.subscription.IsActive"
	rec, err := r.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return IsActiveAt(rec, r.now()), nil
}

// IsActiveAt подписка активна, если у неё есть цена и конец периода плюс GracePeriod ещё не наступил.
func IsActiveAt(rec *models.SubscriptionRecord, now time.Time) bool {
	if rec == nil || rec.PriceID == "" || rec.CurrentPeriodEnd.IsZero() {
		return false
	}
	return rec.CurrentPeriodEnd.Add(GracePeriod).After(now)
}
