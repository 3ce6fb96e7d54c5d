// Package replicate адаптер Replicate для инструментов музыки и видео.
package replicate

import (
	"context"
	"errors"
	"fmt"

	"github.com/replicate/replicate-go"
)

// ErrNoToken возвращается, если токен API не задан.
var ErrNoToken = errors.New("replicate api token is empty")

// Client клиент Replicate.
type Client struct {
	api *replicate.Client
}

// New создаёт клиента с токеном API.
func New(token string, opts ...replicate.ClientOption) (*Client, error) {
	const op = "provider.replicate.New"
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoToken)
	}
	api, err := replicate.NewClient(append([]replicate.ClientOption{replicate.WithToken(token)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Client{api: api}, nil
}

// Predict запускает модель (в формате owner/name:version), дожидается завершения
// и возвращает её сырой вывод.
func (c *Client) Predict(ctx context.Context, model string, input map[string]any) (any, error) {
	const op = "provider.replicate.Predict"
	out, err := c.api.Run(ctx, model, replicate.PredictionInput(input), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
