package models

import "time"

// SubscriptionRecord платная подписка пользователя, зеркало состояния в Stripe.
// На пользователя приходится не более одной записи, записи не удаляются.
type SubscriptionRecord struct {
	UserID           string
	CustomerID       string
	SubscriptionID   string
	PriceID          string
	CurrentPeriodEnd time.Time
}
