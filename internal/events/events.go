// Package events публикует доменные события шлюза в RabbitMQ.
// Публикация выполняется по принципу best effort: сбой логируется
// и никогда не влияет на результат пользовательского запроса.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

// Type тип события, он же ключ маршрутизации.
type Type string

const (
	UsageIncremented    Type = "usage.incremented"
	SubscriptionUpdated Type = "subscription.updated"
	UserSynced          Type = "user.synced"
)

// Event доменное событие.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New создаёт событие с новым идентификатором.
func New(t Type, userID string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher отправляет события.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop отбрасывает события. Используется, когда RabbitMQ не настроен.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// AMQPPublisher публикует события в обменник RabbitMQ.
type AMQPPublisher struct {
	ch       rabbitmq.Publisher
	exchange string
}

// NewAMQPPublisher создаёт издателя поверх канала ch.
func NewAMQPPublisher(ch rabbitmq.Publisher, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

func (p *AMQPPublisher) Publish(_ context.Context, e Event) error {
	return rabbitmq.PublishMessage(p.ch, p.exchange, string(e.Type), e)
}

// Emit публикует событие и логирует ошибку вместо её возврата.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("failed to publish event",
			slog.String("event_type", string(e.Type)),
			slog.String("event_id", e.ID),
			sl.Err(err),
		)
	}
}

// Decode разбирает тело сообщения из очереди. Ошибка разбора оборачивает
// rabbitmq.ErrMalformed, чтобы потребитель не возвращал сообщение в очередь.
func Decode(body []byte) (Event, error) {
	const op = "events.Decode"
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrMalformed, err)
	}
	if e.ID == "" || e.Type == "" {
		return Event{}, fmt.Errorf("%s: %w: missing id or type", op, rabbitmq.ErrMalformed)
	}
	return e, nil
}
