package models

import "time"

// UserProfile зеркало данных пользователя из провайдера идентификации.
// Email используется только для предзаполнения формы оплаты.
type UserProfile struct {
	UserID    string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
