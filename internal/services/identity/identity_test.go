package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
	"github.com/magabrotheeeer/aihub-gateway/internal/storage/memory"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) UpsertUser(ctx context.Context, user models.UserProfile) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_SyncUser(t *testing.T) {
	store := memory.New()
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Type == events.UserSynced && e.UserID == "user_1"
	})).Return(nil).Twice()
	s := New(newNoopLogger(), store, pub)

	require.NoError(t, s.SyncUser(t.Context(), "user_1", "a@example.com"))
	require.NoError(t, s.SyncUser(t.Context(), "user_1", ""))

	u, err := store.GetUser(t.Context(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	pub.AssertExpectations(t)
}

func TestService_SyncUser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		storeErr error
		wantErr  error
	}{
		{name: "нет пользователя", userID: "", wantErr: ErrMissingUserID},
		{name: "ошибка хранилища", userID: "user_1", storeErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(StoreMock)
			if tt.userID != "" {
				store.On("UpsertUser", mock.Anything, models.UserProfile{UserID: tt.userID}).Return(tt.storeErr)
			}
			s := New(newNoopLogger(), store, nil)

			err := s.SyncUser(t.Context(), tt.userID, "")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.userID == "" {
				store.AssertNotCalled(t, "UpsertUser", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_SyncUser_PublishFailureIgnored(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	s := New(newNoopLogger(), memory.New(), pub)

	assert.NoError(t, s.SyncUser(t.Context(), "user_1", "a@example.com"))
}
