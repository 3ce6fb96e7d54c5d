// Package identity зеркалирует профили пользователей из провайдера идентификации.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// ErrMissingUserID событие не содержит идентификатора пользователя.
var ErrMissingUserID = errors.New("user id is required")

// Store хранилище профилей.
type Store interface {
	UpsertUser(ctx context.Context, user models.UserProfile) error
}

// Service синхронизирует профили.
type Service struct {
	log       *slog.Logger
	store     Store
	publisher events.Publisher
}

// New создаёт сервис. publisher может быть nil.
func New(log *slog.Logger, store Store, publisher events.Publisher) *Service {
	return &Service{log: log, store: store, publisher: publisher}
}

// SyncUser сохраняет профиль. Пустой email не затирает сохранённый адрес.
func (s *Service) SyncUser(ctx context.Context, userID, email string) error {
	const op = "identity.Service.SyncUser"
	if userID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingUserID)
	}
	if err := s.store.UpsertUser(ctx, models.UserProfile{UserID: userID, Email: email}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	events.Emit(ctx, s.publisher, s.log, events.New(events.UserSynced, userID, map[string]any{
		"email_known": email != "",
	}))
	return nil
}
