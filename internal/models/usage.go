package models

import "time"

// FreeLimit количество бесплатных вызовов инструментов за всё время жизни аккаунта.
const FreeLimit = 5

// UsageRecord счётчик платных вызовов одного пользователя.
// Создаётся с count=1 при первом вызове и никогда не сбрасывается.
type UsageRecord struct {
	UserID    string
	Count     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsageStatus сводка для отображения пользователю.
type UsageStatus struct {
	Count      int  `json:"count"`
	Limit      int  `json:"limit"`
	Remaining  int  `json:"remaining"`
	Subscribed bool `json:"subscribed"`
}
