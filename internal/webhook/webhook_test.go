package webhook

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/aihub-gateway/internal/webhook/webhooktest"
)

func TestIdentityVerifier_Verify(t *testing.T) {
	v, err := NewIdentityVerifier(webhooktest.IdentitySecret)
	require.NoError(t, err)

	payload := []byte(`{"type":"session.created","data":{"user_id":"user_1"}}`)

	tests := []struct {
		name    string
		headers http.Header
		body    []byte
		wantErr bool
	}{
		{
			name:    "корректная подпись",
			headers: webhooktest.SignIdentity(webhooktest.IdentitySecret, "msg_1", payload, time.Now()),
			body:    payload,
		},
		{
			name:    "нет заголовков",
			headers: http.Header{},
			body:    payload,
			wantErr: true,
		},
		{
			name:    "тело изменено",
			headers: webhooktest.SignIdentity(webhooktest.IdentitySecret, "msg_1", payload, time.Now()),
			body:    []byte(`{"type":"session.created","data":{"user_id":"user_2"}}`),
			wantErr: true,
		},
		{
			name:    "чужой секрет",
			headers: webhooktest.SignIdentity("whsec_dGhpcyBpcyBhIGRpZmZlcmVudCBrZXk=", "msg_1", payload, time.Now()),
			body:    payload,
			wantErr: true,
		},
		{
			name:    "устаревшая метка времени",
			headers: webhooktest.SignIdentity(webhooktest.IdentitySecret, "msg_1", payload, time.Now().Add(-time.Hour)),
			body:    payload,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.body, tt.headers)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSignature)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewIdentityVerifier_EmptySecret(t *testing.T) {
	_, err := NewIdentityVerifier("")
	assert.Error(t, err)
}

func TestParseIdentityEvent(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantType  string
		wantUser  string
		wantEmail string
	}{
		{
			name:     "сессия",
			payload:  `{"type":"session.created","data":{"id":"sess_1","user_id":"user_1"}}`,
			wantType: SessionCreated,
			wantUser: "user_1",
		},
		{
			name: "пользователь с основным адресом",
			payload: `{"type":"user.created","data":{"id":"user_2","primary_email_address_id":"em_2",
				"email_addresses":[{"id":"em_1","email_address":"old@example.com"},{"id":"em_2","email_address":"main@example.com"}]}}`,
			wantType:  UserCreated,
			wantUser:  "user_2",
			wantEmail: "main@example.com",
		},
		{
			name:      "пользователь без основного адреса",
			payload:   `{"type":"user.updated","data":{"id":"user_3","email_addresses":[{"id":"em_1","email_address":"a@example.com"}]}}`,
			wantType:  UserUpdated,
			wantUser:  "user_3",
			wantEmail: "a@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseIdentityEvent([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.wantUser, e.SubjectUserID())
			assert.Equal(t, tt.wantEmail, e.PrimaryEmail())
		})
	}

	_, err := ParseIdentityEvent([]byte("{"))
	assert.Error(t, err)
}
