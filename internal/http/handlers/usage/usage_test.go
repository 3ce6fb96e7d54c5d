package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/aihub-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context, userID string) (models.UsageStatus, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.UsageStatus), args.Error(1)
}

func TestUsageHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "сводка бесплатного пользователя",
			setupMock: func(m *MockService) {
				m.On("Status", mock.Anything, "user_1").
					Return(models.UsageStatus{Count: 2, Limit: 5, Remaining: 3}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"count":2,"limit":5,"remaining":3,"subscribed":false}}`,
		},
		{
			name: "ошибка сервиса",
			setupMock: func(m *MockService) {
				m.On("Status", mock.Anything, "user_1").Return(models.UsageStatus{}, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not get usage status"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/usage", nil)
			req = req.WithContext(middlewarectx.WithUserID(req.Context(), "user_1"))
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
