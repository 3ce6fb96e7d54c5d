// Package memory реализует хранилище шлюза в памяти процесса.
// Используется в тестах и для локального запуска без базы данных.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage"
)

// Storage потокобезопасное хранилище в памяти.
type Storage struct {
	mu            sync.Mutex
	usage         map[string]int
	subscriptions map[string]models.SubscriptionRecord
	users         map[string]models.UserProfile
	now           func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		usage:         make(map[string]int),
		subscriptions: make(map[string]models.SubscriptionRecord),
		users:         make(map[string]models.UserProfile),
		now:           time.Now,
	}
}

func (s *Storage) GetUsageCount(_ context.Context, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.usage[userID]
	return count, ok, nil
}

func (s *Storage) IncrementUsage(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[userID]++
	return s.usage[userID], nil
}

func (s *Storage) GetSubscription(_ context.Context, userID string) (*models.SubscriptionRecord, error) {
	const op = "storage.memory.GetSubscription"
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.subscriptions[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return &rec, nil
}

func (s *Storage) UpsertSubscription(_ context.Context, rec models.SubscriptionRecord) error {
	const op = "storage.memory.UpsertSubscription"
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.SubscriptionID != "" {
		for userID, existing := range s.subscriptions {
			if userID != rec.UserID && existing.SubscriptionID == rec.SubscriptionID {
				return fmt.Errorf("%s: subscription %s already belongs to another user", op, rec.SubscriptionID)
			}
		}
	}
	s.subscriptions[rec.UserID] = rec
	return nil
}

func (s *Storage) UpdateSubscriptionPeriod(_ context.Context, subscriptionID, priceID string, periodEnd time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for userID, rec := range s.subscriptions {
		if rec.SubscriptionID != subscriptionID {
			continue
		}
		rec.PriceID = priceID
		rec.CurrentPeriodEnd = periodEnd
		s.subscriptions[userID] = rec
		updated++
	}
	return updated, nil
}

func (s *Storage) UpsertUser(_ context.Context, user models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	existing, ok := s.users[user.UserID]
	if !ok {
		user.CreatedAt = now
		user.UpdatedAt = now
		s.users[user.UserID] = user
		return nil
	}
	if user.Email != "" {
		existing.Email = user.Email
	}
	existing.UpdatedAt = now
	s.users[user.UserID] = existing
	return nil
}

func (s *Storage) GetUser(_ context.Context, userID string) (*models.UserProfile, error) {
	const op = "storage.memory.GetUser"
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return &u, nil
}

// Ping всегда успешен.
func (s *Storage) Ping(context.Context) error { return nil }
