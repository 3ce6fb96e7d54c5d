// Package billing обращается к Stripe: создаёт сессии оплаты и портала,
// читает подписки и проверяет подписи вебхуков.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/subscription"
	stripewebhook "github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/webhook"
)

// MetadataUserID ключ метаданных Stripe с идентификатором пользователя.
const MetadataUserID = "userId"

// Типы обрабатываемых событий Stripe.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventInvoicePaid       = "invoice.payment_succeeded"
)

// ErrNotConfigured секретный ключ Stripe не задан.
var ErrNotConfigured = errors.New("billing is not configured")

// SubscriptionDetails состояние подписки в Stripe.
type SubscriptionDetails struct {
	ID               string
	CustomerID       string
	PriceID          string
	CurrentPeriodEnd time.Time
	UserID           string
}

// CheckoutCompleted данные завершённой сессии оплаты.
type CheckoutCompleted struct {
	SubscriptionID string
	CustomerID     string
	UserID         string
}

// Gateway клиент Stripe.
type Gateway struct {
	cfg           config.Stripe
	checkout      session.Client
	portal        portal.Client
	subscriptions subscription.Client
}

// New создаёт клиента. При backend == nil используется API Stripe.
func New(cfg config.Stripe, backend stripe.Backend) *Gateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &Gateway{
		cfg:           cfg,
		checkout:      session.Client{B: backend, Key: cfg.SecretKey},
		portal:        portal.Client{B: backend, Key: cfg.SecretKey},
		subscriptions: subscription.Client{B: backend, Key: cfg.SecretKey},
	}
}

func (g *Gateway) settingsURL() string {
	return strings.TrimRight(g.cfg.AppURL, "/") + "/settings"
}

// CheckoutURL создаёт сессию оформления ежемесячной подписки.
// Идентификатор пользователя сохраняется в метаданных сессии и подписки.
func (g *Gateway) CheckoutURL(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.Gateway.CheckoutURL"
	if g.cfg.SecretKey == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:               stripe.String(g.settingsURL()),
		CancelURL:                stripe.String(g.settingsURL()),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		BillingAddressCollection: stripe.String("auto"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(g.cfg.ProductName),
						Description: stripe.String("Unlimited AI Generations"),
					},
					UnitAmount: stripe.Int64(g.cfg.UnitAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserID: userID},
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata(MetadataUserID, userID)
	params.Context = ctx

	s, err := g.checkout.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.URL, nil
}

// PortalURL создаёт сессию портала управления подпиской.
func (g *Gateway) PortalURL(ctx context.Context, customerID string) (string, error) {
	const op = "billing.Gateway.PortalURL"
	if g.cfg.SecretKey == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.settingsURL()),
	}
	params.Context = ctx

	s, err := g.portal.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.URL, nil
}

// Subscription читает подписку по идентификатору.
func (g *Gateway) Subscription(ctx context.Context, id string) (*SubscriptionDetails, error) {
	const op = "billing.Gateway.Subscription"
	if g.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subscriptionDetails(sub), nil
}

func subscriptionDetails(sub *stripe.Subscription) *SubscriptionDetails {
	d := &SubscriptionDetails{
		ID:     sub.ID,
		UserID: sub.Metadata[MetadataUserID],
	}
	if sub.Customer != nil {
		d.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		d.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		d.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return d
}

// ParseEvent проверяет подпись и разбирает событие Stripe.
func (g *Gateway) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	const op = "billing.Gateway.ParseEvent"
	if g.cfg.WebhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}
	event, err := stripewebhook.ConstructEventWithOptions(
		payload,
		signature,
		g.cfg.WebhookSecret,
		stripewebhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%s: %w: %w", op, webhook.ErrInvalidSignature, err)
	}
	return event, nil
}

// DecodeCheckoutSession извлекает данные из события checkout.session.completed.
func DecodeCheckoutSession(e stripe.Event) (*CheckoutCompleted, error) {
	const op = "billing.DecodeCheckoutSession"
	var s stripe.CheckoutSession
	if err := json.Unmarshal(e.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c := &CheckoutCompleted{UserID: s.Metadata[MetadataUserID]}
	if s.Subscription != nil {
		c.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		c.CustomerID = s.Customer.ID
	}
	return c, nil
}

// DecodeInvoice возвращает идентификатор подписки из события invoice.payment_succeeded.
func DecodeInvoice(e stripe.Event) (string, error) {
	const op = "billing.DecodeInvoice"
	var inv stripe.Invoice
	if err := json.Unmarshal(e.Data.Raw, &inv); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if inv.Subscription == nil {
		return "", nil
	}
	return inv.Subscription.ID, nil
}
