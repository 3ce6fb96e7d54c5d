package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	stripegw "github.com/magabrotheeeer/aihub-gateway/internal/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage/memory"
)

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CheckoutURL(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) PortalURL(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) Subscription(ctx context.Context, id string) (*stripegw.SubscriptionDetails, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*stripegw.SubscriptionDetails)
	return d, args.Error(1)
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var periodEnd = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func TestService_BillingURL(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, store *memory.Storage, gw *GatewayMock)
		want  string
	}{
		{
			name: "новый пользователь без профиля",
			setup: func(_ *testing.T, _ *memory.Storage, gw *GatewayMock) {
				gw.On("CheckoutURL", mock.Anything, "user_1", "").Return("https://checkout/1", nil).Once()
			},
			want: "https://checkout/1",
		},
		{
			name: "почта подставляется из профиля",
			setup: func(t *testing.T, store *memory.Storage, gw *GatewayMock) {
				require.NoError(t, store.UpsertUser(t.Context(), models.UserProfile{UserID: "user_1", Email: "a@example.com"}))
				gw.On("CheckoutURL", mock.Anything, "user_1", "a@example.com").Return("https://checkout/2", nil).Once()
			},
			want: "https://checkout/2",
		},
		{
			name: "существующий клиент получает портал",
			setup: func(t *testing.T, store *memory.Storage, gw *GatewayMock) {
				require.NoError(t, store.UpsertSubscription(t.Context(), models.SubscriptionRecord{
					UserID: "user_1", CustomerID: "cus_1", SubscriptionID: "sub_1",
				}))
				gw.On("PortalURL", mock.Anything, "cus_1").Return("https://portal/1", nil).Once()
			},
			want: "https://portal/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, gw := memory.New(), new(GatewayMock)
			tt.setup(t, store, gw)
			s := New(newNoopLogger(), store, gw, nil)

			got, err := s.BillingURL(t.Context(), "user_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			gw.AssertExpectations(t)
		})
	}
}

func TestService_BillingURL_GatewayError(t *testing.T) {
	gw := new(GatewayMock)
	gw.On("CheckoutURL", mock.Anything, "user_1", "").Return("", errors.New("stripe down"))
	s := New(newNoopLogger(), memory.New(), gw, nil)

	_, err := s.BillingURL(t.Context(), "user_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stripe down")
}

func TestService_CompleteCheckout(t *testing.T) {
	store, gw, pub := memory.New(), new(GatewayMock), &recordingPublisher{}
	gw.On("Subscription", mock.Anything, "sub_1").Return(&stripegw.SubscriptionDetails{
		ID: "sub_1", CustomerID: "cus_1", PriceID: "price_1", CurrentPeriodEnd: periodEnd,
	}, nil)
	s := New(newNoopLogger(), store, gw, pub)

	require.NoError(t, s.CompleteCheckout(t.Context(), "user_1", "sub_1"))

	rec, err := store.GetSubscription(t.Context(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionRecord{
		UserID: "user_1", CustomerID: "cus_1", SubscriptionID: "sub_1", PriceID: "price_1", CurrentPeriodEnd: periodEnd,
	}, *rec)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.SubscriptionUpdated, pub.events[0].Type)
	assert.Equal(t, "user_1", pub.events[0].UserID)
}

func TestService_CompleteCheckout_MissingUser(t *testing.T) {
	gw := new(GatewayMock)
	s := New(newNoopLogger(), memory.New(), gw, nil)

	err := s.CompleteCheckout(t.Context(), "", "sub_1")
	assert.ErrorIs(t, err, ErrMissingUserID)
	gw.AssertNotCalled(t, "Subscription", mock.Anything, mock.Anything)
}

func TestService_RecordPayment(t *testing.T) {
	newEnd := periodEnd.AddDate(0, 1, 0)

	tests := []struct {
		name       string
		existing   *models.SubscriptionRecord
		details    stripegw.SubscriptionDetails
		wantRecord *models.SubscriptionRecord
		wantEvents int
	}{
		{
			name: "продление существующей подписки",
			existing: &models.SubscriptionRecord{
				UserID: "user_1", CustomerID: "cus_1", SubscriptionID: "sub_1", PriceID: "price_1", CurrentPeriodEnd: periodEnd,
			},
			details: stripegw.SubscriptionDetails{ID: "sub_1", CustomerID: "cus_1", PriceID: "price_2", CurrentPeriodEnd: newEnd},
			wantRecord: &models.SubscriptionRecord{
				UserID: "user_1", CustomerID: "cus_1", SubscriptionID: "sub_1", PriceID: "price_2", CurrentPeriodEnd: newEnd,
			},
			wantEvents: 1,
		},
		{
			name:    "неизвестная подписка создаётся по метаданным",
			details: stripegw.SubscriptionDetails{ID: "sub_1", CustomerID: "cus_1", PriceID: "price_1", CurrentPeriodEnd: newEnd, UserID: "user_1"},
			wantRecord: &models.SubscriptionRecord{
				UserID: "user_1", CustomerID: "cus_1", SubscriptionID: "sub_1", PriceID: "price_1", CurrentPeriodEnd: newEnd,
			},
			wantEvents: 1,
		},
		{
			name:       "неизвестная подписка без пользователя пропускается",
			details:    stripegw.SubscriptionDetails{ID: "sub_1", CustomerID: "cus_1", PriceID: "price_1", CurrentPeriodEnd: newEnd},
			wantEvents: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, gw, pub := memory.New(), new(GatewayMock), &recordingPublisher{}
			if tt.existing != nil {
				require.NoError(t, store.UpsertSubscription(t.Context(), *tt.existing))
			}
			details := tt.details
			gw.On("Subscription", mock.Anything, "sub_1").Return(&details, nil)
			s := New(newNoopLogger(), store, gw, pub)

			require.NoError(t, s.RecordPayment(t.Context(), "sub_1"))

			rec, err := store.GetSubscription(t.Context(), "user_1")
			if tt.wantRecord == nil {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, *tt.wantRecord, *rec)
			}
			assert.Len(t, pub.events, tt.wantEvents)
		})
	}
}
