// Package webhook проверяет подписи входящих вебхуков и разбирает события
// провайдера идентификации.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

// ErrInvalidSignature подпись вебхука отсутствует или не совпадает.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Заголовки подписи провайдера идентификации.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

// Типы событий провайдера идентификации.
const (
	SessionCreated = "session.created"
	UserCreated    = "user.created"
	UserUpdated    = "user.updated"
)

// IdentityVerifier проверяет подпись вебхуков провайдера идентификации.
type IdentityVerifier struct {
	wh *svix.Webhook
}

// NewIdentityVerifier создаёт проверяющего по секрету вида whsec_<base64>.
func NewIdentityVerifier(secret string) (*IdentityVerifier, error) {
	const op = "webhook.NewIdentityVerifier"
	if secret == "" {
		return nil, fmt.Errorf("%s: empty secret", op)
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &IdentityVerifier{wh: wh}, nil
}

// Verify проверяет подпись payload по заголовкам запроса.
func (v *IdentityVerifier) Verify(payload []byte, headers http.Header) error {
	const op = "webhook.IdentityVerifier.Verify"
	if headers.Get(HeaderID) == "" || headers.Get(HeaderTimestamp) == "" || headers.Get(HeaderSignature) == "" {
		return fmt.Errorf("%s: %w: missing svix headers", op, ErrInvalidSignature)
	}
	if err := v.wh.Verify(payload, headers); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}
	return nil
}

// IdentityEvent событие провайдера идентификации.
type IdentityEvent struct {
	Type string       `json:"type"`
	Data IdentityData `json:"data"`
}

// IdentityData полезная нагрузка события: для сессий заполнен UserID,
// для пользователей заполнены ID и адреса почты.
type IdentityData struct {
	ID                    string         `json:"id"`
	UserID                string         `json:"user_id"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// EmailAddress адрес почты пользователя.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ParseIdentityEvent разбирает тело вебхука.
func ParseIdentityEvent(payload []byte) (IdentityEvent, error) {
	const op = "webhook.ParseIdentityEvent"
	var e IdentityEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return IdentityEvent{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// SubjectUserID идентификатор пользователя, к которому относится событие.
func (e IdentityEvent) SubjectUserID() string {
	if e.Type == SessionCreated {
		return e.Data.UserID
	}
	if e.Data.ID != "" {
		return e.Data.ID
	}
	return e.Data.UserID
}

// PrimaryEmail основной адрес почты пользователя или пустая строка.
func (e IdentityEvent) PrimaryEmail() string {
	for _, a := range e.Data.EmailAddresses {
		if a.ID == e.Data.PrimaryEmailAddressID {
			return a.EmailAddress
		}
	}
	if len(e.Data.EmailAddresses) > 0 {
		return e.Data.EmailAddresses[0].EmailAddress
	}
	return ""
}
