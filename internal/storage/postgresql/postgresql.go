// Package postgresql реализует хранилище шлюза на основе PostgreSQL:
// счётчики использования инструментов, подписки и зеркало профилей пользователей.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New открывает подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Ping проверяет доступность базы.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// GetUsageCount возвращает счётчик пользователя; found=false, если записи нет.
func (s *Storage) GetUsageCount(ctx context.Context, userID string) (int, bool, error) {
	const op = "storage.postgresql.GetUsageCount"

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT count FROM user_api_limits WHERE user_id = $1`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return count, true, nil
}

// IncrementUsage атомарно увеличивает счётчик пользователя на единицу
// (создавая запись с count=1) и возвращает новое значение.
func (s *Storage) IncrementUsage(ctx context.Context, userID string) (int, error) {
	const op = "storage.postgresql.IncrementUsage"

	query := `INSERT INTO user_api_limits (user_id, count)
			  VALUES ($1, 1)
			  ON CONFLICT (user_id) DO UPDATE
			  SET count = user_api_limits.count + 1,
			      updated_at = NOW()
			  RETURNING count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetSubscription возвращает подписку пользователя или storage.ErrNotFound.
func (s *Storage) GetSubscription(ctx context.Context, userID string) (*models.SubscriptionRecord, error) {
	const op = "storage.postgresql.GetSubscription"

	query := `SELECT user_id, stripe_customer_id, stripe_subscription_id,
			      stripe_price_id, stripe_current_period_end
			  FROM user_subscriptions
			  WHERE user_id = $1`
	var (
		rec       models.SubscriptionRecord
		customer  sql.NullString
		subID     sql.NullString
		priceID   sql.NullString
		periodEnd sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &customer, &subID, &priceID, &periodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rec.CustomerID = customer.String
	rec.SubscriptionID = subID.String
	rec.PriceID = priceID.String
	if periodEnd.Valid {
		rec.CurrentPeriodEnd = periodEnd.Time.UTC()
	}
	return &rec, nil
}

// UpsertSubscription создаёт подписку пользователя или перезаписывает существующую.
func (s *Storage) UpsertSubscription(ctx context.Context, rec models.SubscriptionRecord) error {
	const op = "storage.postgresql.UpsertSubscription"

	query := `INSERT INTO user_subscriptions (user_id, stripe_customer_id, stripe_subscription_id,
			      stripe_price_id, stripe_current_period_end)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (user_id) DO UPDATE
			  SET stripe_customer_id = EXCLUDED.stripe_customer_id,
			      stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			      stripe_price_id = EXCLUDED.stripe_price_id,
			      stripe_current_period_end = EXCLUDED.stripe_current_period_end,
			      updated_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query,
		rec.UserID, nullString(rec.CustomerID), nullString(rec.SubscriptionID),
		nullString(rec.PriceID), nullTime(rec.CurrentPeriodEnd))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscriptionPeriod обновляет цену и конец периода по идентификатору подписки Stripe
// и возвращает количество изменённых строк.
func (s *Storage) UpdateSubscriptionPeriod(ctx context.Context, subscriptionID, priceID string, periodEnd time.Time) (int, error) {
	const op = "storage.postgresql.UpdateSubscriptionPeriod"

	query := `UPDATE user_subscriptions
			  SET stripe_price_id = $1,
			      stripe_current_period_end = $2,
			      updated_at = NOW()
			  WHERE stripe_subscription_id = $3`
	res, err := s.DB.ExecContext(ctx, query, nullString(priceID), nullTime(periodEnd), subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// UpsertUser создаёт или обновляет профиль. Пустой email не затирает сохранённый.
func (s *Storage) UpsertUser(ctx context.Context, user models.UserProfile) error {
	const op = "storage.postgresql.UpsertUser"

	query := `INSERT INTO users (user_id, email)
			  VALUES ($1, $2)
			  ON CONFLICT (user_id) DO UPDATE
			  SET email = COALESCE(EXCLUDED.email, users.email),
			      updated_at = NOW()`
	if _, err := s.DB.ExecContext(ctx, query, user.UserID, nullString(user.Email)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает профиль пользователя или storage.ErrNotFound.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	const op = "storage.postgresql.GetUser"

	var (
		u     models.UserProfile
		email sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_id, email, created_at, updated_at FROM users WHERE user_id = $1`, userID).
		Scan(&u.UserID, &email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Email = email.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
