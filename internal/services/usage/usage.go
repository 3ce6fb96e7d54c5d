// Package usage реализует учёт бесплатных вызовов инструментов.
//
// Ledger читает и атомарно увеличивает счётчик пользователя в хранилище.
// Проверка лимита и увеличение счётчика разнесены во времени: между ними
// выполняется вызов провайдера, поэтому параллельные запросы одного пользователя
// могут превысить лимит не более чем на число одновременно выполняемых вызовов.
package usage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// Store хранилище счётчиков использования.
type Store interface {
	// GetUsageCount возвращает счётчик; found=false, если записи нет.
	GetUsageCount(ctx context.Context, userID string) (int, bool, error)
	// IncrementUsage атомарно увеличивает счётчик и возвращает новое значение.
	IncrementUsage(ctx context.Context, userID string) (int, error)
}

// Ledger журнал использования инструментов.
type Ledger struct {
	store Store
	limit int
	log   *slog.Logger
}

// NewLedger создаёт журнал с лимитом models.FreeLimit.
func NewLedger(store Store, log *slog.Logger) *Ledger {
	return &Ledger{
		store: store,
		limit: models.FreeLimit,
		log:   log,
	}
}

// Limit возвращает бесплатный лимит.
func (l *Ledger) Limit() int {
	return l.limit
}

// GetCount возвращает число использованных вызовов, 0 если записи нет.
func (l *Ledger) GetCount(ctx context.Context, userID string) (int, error) {
	const op = "services.usage.GetCount"
	count, _, err := l.store.GetUsageCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// IsWithinLimit сообщает, остались ли у пользователя бесплатные вызовы.
func (l *Ledger) IsWithinLimit(ctx context.Context, userID string) (bool, error) {
	const op = "services.usage.IsWithinLimit"
	count, found, err := l.store.GetUsageCount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return !found || count < l.limit, nil
}

// Increment увеличивает счётчик пользователя на единицу и возвращает новое значение.
func (l *Ledger) Increment(ctx context.Context, userID string) (int, error) {
	const op = "services.usage.Increment"
	count, err := l.store.IncrementUsage(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	l.log.Debug("usage incremented", slog.String("user_id", userID), slog.Int("count", count))
	return count, nil
}

// ActiveChecker сообщает, активна ли подписка пользователя.
type ActiveChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Status собирает сводку использования для пользователя.
func (l *Ledger) Status(ctx context.Context, userID string, subs ActiveChecker) (models.UsageStatus, error) {
	const op = "services.usage.Status"
	count, err := l.GetCount(ctx, userID)
	if err != nil {
		return models.UsageStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	subscribed, err := subs.IsActive(ctx, userID)
	if err != nil {
		return models.UsageStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.UsageStatus{
		Count:      count,
		Limit:      l.limit,
		Remaining:  max(l.limit-count, 0),
		Subscribed: subscribed,
	}, nil
}
