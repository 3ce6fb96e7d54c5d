// Package cache реализует работу с Redis: альтернативный бэкенд счётчиков
// использования и журнал уже обработанных событий вебхуков.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/aihub-gateway/internal/config"
)

const (
	usagePrefix = "usage:"
	eventPrefix = "webhook:event:"
)

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}

// GetUsageCount возвращает счётчик пользователя; found=false, если ключа нет.
func (c *Cache) GetUsageCount(ctx context.Context, userID string) (int, bool, error) {
	const op = "cache.GetUsageCount"
	count, err := c.Db.Get(ctx, usagePrefix+userID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return count, true, nil
}

// IncrementUsage атомарно увеличивает счётчик через INCR и возвращает новое значение.
func (c *Cache) IncrementUsage(ctx context.Context, userID string) (int, error) {
	const op = "cache.IncrementUsage"
	count, err := c.Db.Incr(ctx, usagePrefix+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(count), nil
}

// Seen сообщает, обрабатывалось ли уже событие с данным идентификатором.
func (c *Cache) Seen(ctx context.Context, source, eventID string) (bool, error) {
	const op = "cache.Seen"
	n, err := c.Db.Exists(ctx, eventKey(source, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// Remember отмечает событие как обработанное на время ttl.
func (c *Cache) Remember(ctx context.Context, source, eventID string, ttl time.Duration) error {
	const op = "cache.Remember"
	if err := c.Db.Set(ctx, eventKey(source, eventID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func eventKey(source, eventID string) string {
	return eventPrefix + source + ":" + eventID
}
