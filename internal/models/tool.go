// Package models содержит доменные структуры шлюза: инструменты и их запросы,
// записи учёта использования, подписки и зеркало профиля пользователя.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tool идентифицирует генеративный инструмент.
type Tool string

// Поддерживаемые инструменты.
const (
	ToolChat  Tool = "chat"
	ToolCode  Tool = "code"
	ToolImage Tool = "image"
	ToolMusic Tool = "music"
	ToolVideo Tool = "video"
)

// Tools возвращает все инструменты в порядке их объявления.
func Tools() []Tool {
	return []Tool{ToolChat, ToolCode, ToolImage, ToolMusic, ToolVideo}
}

// Значения по умолчанию для генерации изображений.
const (
	DefaultImageAmount     = 1
	DefaultImageResolution = "512x512"
)

// ToolRequest общий интерфейс тела запроса к инструменту.
type ToolRequest interface {
	// ApplyDefaults заполняет необязательные поля значениями по умолчанию.
	ApplyDefaults()
}

// NewRequest возвращает пустое тело запроса для инструмента t.
func (t Tool) NewRequest() (ToolRequest, error) {
	switch t {
	case ToolChat:
		return &ChatRequest{}, nil
	case ToolCode:
		return &CodeRequest{}, nil
	case ToolImage:
		return &ImageRequest{}, nil
	case ToolMusic:
		return &MusicRequest{}, nil
	case ToolVideo:
		return &VideoRequest{}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", string(t))
	}
}

// Message одно сообщение диалога.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest тело запроса к инструменту диалога.
type ChatRequest struct {
	Prompt   string    `json:"prompt" validate:"required"`
	Messages []Message `json:"messages,omitempty"`
}

// ApplyDefaults ничего не делает: у диалога нет полей по умолчанию.
func (r *ChatRequest) ApplyDefaults() {}

// CodeRequest тело запроса к генератору кода.
type CodeRequest struct {
	Prompt   string    `json:"prompt" validate:"required"`
	Messages []Message `json:"messages,omitempty"`
}

func (r *CodeRequest) ApplyDefaults() {}

// ImageRequest тело запроса к генерации изображений.
type ImageRequest struct {
	Prompt     string  `json:"prompt" validate:"required"`
	Amount     FlexInt `json:"amount" validate:"required,min=1,max=10"`
	Resolution string  `json:"resolution" validate:"required,oneof=256x256 512x512 1024x1024"`
}

// ApplyDefaults подставляет количество 1 и разрешение 512x512, если они не переданы.
func (r *ImageRequest) ApplyDefaults() {
	if r.Amount == 0 {
		r.Amount = DefaultImageAmount
	}
	if r.Resolution == "" {
		r.Resolution = DefaultImageResolution
	}
}

// MusicRequest тело запроса к генерации музыки.
type MusicRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

func (r *MusicRequest) ApplyDefaults() {}

// VideoRequest тело запроса к генерации видео.
type VideoRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

func (r *VideoRequest) ApplyDefaults() {}

// Image один сгенерированный образ.
type Image struct {
	URL string `json:"url"`
}

// AudioResult ответ инструмента музыки.
type AudioResult struct {
	Audio string `json:"audio"`
}

// VideoResult ответ инструмента видео.
type VideoResult struct {
	Video string `json:"video"`
}

// FlexInt целое, которое принимается из JSON и числом, и строкой ("2").
// Нечисловая строка даёт отрицательное значение, которое затем отклоняет валидация.
type FlexInt int

// UnmarshalJSON реализует json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			*f = -1
			return nil
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*f = -1
		return nil
	}
	*f = FlexInt(n)
	return nil
}
