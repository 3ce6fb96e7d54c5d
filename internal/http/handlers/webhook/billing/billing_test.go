package billingwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/billing"
	"github.com/magabrotheeeer/aihub-gateway/internal/cache"
	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/webhook/webhooktest"
)

const secret = "whsec_billing_test"

type MockService struct {
	mock.Mock
}

func (m *MockService) CompleteCheckout(ctx context.Context, userID, subscriptionID string) error {
	args := m.Called(ctx, userID, subscriptionID)
	return args.Error(0)
}

func (m *MockService) RecordPayment(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(t *testing.T, svc Service, deduper Deduper) *Handler {
	t.Helper()
	gw := billing.New(config.Stripe{WebhookSecret: secret}, nil)
	return New(newNoopLogger(), gw, svc, deduper, time.Hour, nil)
}

func post(h http.Handler, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signed(payload string) string {
	return webhooktest.SignStripe(secret, []byte(payload), time.Now())
}

const (
	checkoutPayload = `{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"user_1"}}}}`
	checkoutNoUserPayload = `{"id":"evt_2","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_2","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{}}}}`
	invoicePayload = `{"id":"evt_3","object":"event","type":"invoice.payment_succeeded",
		"data":{"object":{"id":"in_1","object":"invoice","subscription":"sub_1"}}}`
	otherPayload = `{"id":"evt_4","object":"event","type":"customer.created",
		"data":{"object":{"id":"cus_1","object":"customer"}}}`
)

func TestBillingWebhook(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		signature      func(payload string) string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "оформление подписки",
			payload:   checkoutPayload,
			signature: signed,
			setupMock: func(m *MockService) {
				m.On("CompleteCheckout", mock.Anything, "user_1", "sub_1").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "оформление без userId",
			payload:        checkoutNoUserPayload,
			signature:      signed,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "User id is required",
		},
		{
			name:      "оплата счёта",
			payload:   invoicePayload,
			signature: signed,
			setupMock: func(m *MockService) {
				m.On("RecordPayment", mock.Anything, "sub_1").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "прочие события игнорируются",
			payload:        otherPayload,
			signature:      signed,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "подделанная подпись",
			payload: checkoutPayload,
			signature: func(string) string {
				return webhooktest.SignStripe(secret, []byte(invoicePayload), time.Now())
			},
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Webhook Error",
		},
		{
			name:           "нет подписи",
			payload:        checkoutPayload,
			signature:      func(string) string { return "" },
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Webhook Error",
		},
		{
			name:      "ошибка сервиса",
			payload:   invoicePayload,
			signature: signed,
			setupMock: func(m *MockService) {
				m.On("RecordPayment", mock.Anything, "sub_1").Return(errors.New("stripe down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := post(newHandler(t, svc, nil), tt.payload, tt.signature(tt.payload))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestBillingWebhook_Deduplication(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.InitServer(t.Context(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc := new(MockService)
	svc.On("CompleteCheckout", mock.Anything, "user_1", "sub_1").Return(nil).Once()
	h := newHandler(t, svc, c)

	assert.Equal(t, http.StatusOK, post(h, checkoutPayload, signed(checkoutPayload)).Code)
	assert.Equal(t, http.StatusOK, post(h, checkoutPayload, signed(checkoutPayload)).Code)

	svc.AssertNumberOfCalls(t, "CompleteCheckout", 1)
}

func TestBillingWebhook_FailedEventIsRetried(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.InitServer(t.Context(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc := new(MockService)
	svc.On("RecordPayment", mock.Anything, "sub_1").Return(errors.New("db down")).Once()
	svc.On("RecordPayment", mock.Anything, "sub_1").Return(nil).Once()
	h := newHandler(t, svc, c)

	assert.Equal(t, http.StatusInternalServerError, post(h, invoicePayload, signed(invoicePayload)).Code)
	assert.Equal(t, http.StatusOK, post(h, invoicePayload, signed(invoicePayload)).Code)

	svc.AssertNumberOfCalls(t, "RecordPayment", 2)
}

func TestBillingWebhook_NotConfigured(t *testing.T) {
	svc := new(MockService)
	h := New(newNoopLogger(), billing.New(config.Stripe{}, nil), svc, nil, time.Hour, nil)

	w := post(h, checkoutPayload, signed(checkoutPayload))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	svc.AssertNotCalled(t, "CompleteCheckout", mock.Anything, mock.Anything, mock.Anything)
}
