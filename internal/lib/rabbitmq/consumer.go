package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

// ErrMalformed помечает сообщение, которое бессмысленно обрабатывать повторно.
// Такие сообщения отклоняются без возврата в очередь.
var ErrMalformed = errors.New("malformed message")

// Consumer часть *amqp.Channel, нужная для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// ConsumeMessages читает очередь queueName и обрабатывает не больше workers
// сообщений одновременно. Блокируется до отмены ctx или закрытия канала
// доставки и дожидается завершения начатых обработчиков.
func ConsumeMessages(ctx context.Context, ch Consumer, queueName string, workers int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumeMessages"

	if workers < 1 {
		workers = 1
	}
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, workers)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return nil
			}
			// Неподтверждённое сообщение брокер вернёт в очередь сам.
			select {
			case sem <- struct{}{}:
				if ctx.Err() != nil {
					<-sem
					return nil
				}
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					wg.Done()
				}()
				settle(ctx, d, handler, log)
			}(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func settle(ctx context.Context, d amqp.Delivery, handler Handler, log *slog.Logger) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrMalformed):
		log.Warn("dropping malformed message", sl.Err(err))
		if rejErr := d.Reject(false); rejErr != nil {
			log.Error("failed to reject message", sl.Err(rejErr))
		}
	default:
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
