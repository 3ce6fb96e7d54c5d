// Package openai адаптер OpenAI для инструментов диалога, кода и изображений.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// Client клиент OpenAI.
type Client struct {
	api   *openai.Client
	model string
}

// New создаёт клиента по настройкам провайдеров. Пустой OpenAIBaseURL означает публичный API.
func New(cfg config.Providers) *Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.ChatModel
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}
}

// Complete отправляет диалог в модель и возвращает первый вариант ответа.
func (c *Client) Complete(ctx context.Context, messages []models.Message) (models.Message, error) {
	const op = "provider.openai.Complete"

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return models.Message{}, fmt.Errorf("%s: %w", op, errors.New("empty choices"))
	}
	msg := resp.Choices[0].Message
	return models.Message{Role: msg.Role, Content: msg.Content}, nil
}

// GenerateImages генерирует n изображений размера size и возвращает их URL.
func (c *Client) GenerateImages(ctx context.Context, prompt string, n int, size string) ([]models.Image, error) {
	const op = "provider.openai.GenerateImages"

	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              n,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	images := make([]models.Image, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(images, models.Image{URL: d.URL})
	}
	return images, nil
}
