// Package provider описывает, какие внешние генеративные сервисы настроены,
// и изолирует их сбои автоматическими выключателями.
package provider

import (
	"github.com/magabrotheeeer/aihub-gateway/internal/config"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// Registry отвечает, есть ли у инструмента настроенный провайдер.
// Значение вычисляется один раз при старте из конфига.
type Registry struct {
	configured map[models.Tool]bool
}

// NewRegistry строит реестр по ключам провайдеров: ключ OpenAI открывает
// диалог, код и изображения, токен Replicate открывает музыку и видео.
func NewRegistry(cfg config.Providers) *Registry {
	openAI := cfg.OpenAIAPIKey != ""
	replicate := cfg.ReplicateAPIToken != ""
	return &Registry{
		configured: map[models.Tool]bool{
			models.ToolChat:  openAI,
			models.ToolCode:  openAI,
			models.ToolImage: openAI,
			models.ToolMusic: replicate,
			models.ToolVideo: replicate,
		},
	}
}

// Configured сообщает, настроен ли провайдер инструмента.
func (r *Registry) Configured(tool models.Tool) bool {
	return r.configured[tool]
}
