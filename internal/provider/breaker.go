package provider

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/metrics"
	"github.com/magabrotheeeer/aihub-gateway/internal/models"
)

// BreakerConfig настройки выключателей.
type BreakerConfig struct {
	// FailureThreshold число подряд идущих сбоев, после которого выключатель размыкается.
	FailureThreshold uint32
	// OpenTimeout сколько выключатель остаётся разомкнутым.
	OpenTimeout time.Duration
}

// Breakers держит по одному выключателю на инструмент.
type Breakers struct {
	breakers map[models.Tool]*gobreaker.CircuitBreaker[any]
}

// NewBreakers создаёт выключатели для всех инструментов.
func NewBreakers(cfg BreakerConfig, log *slog.Logger, m *metrics.Metrics) *Breakers {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	b := &Breakers{breakers: make(map[models.Tool]*gobreaker.CircuitBreaker[any])}
	for _, tool := range models.Tools() {
		tool := tool
		b.breakers[tool] = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        string(tool),
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("provider circuit breaker state changed",
					slog.String("tool", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
				m.BreakerOpen(name, to == gobreaker.StateOpen)
			},
		})
	}
	return b
}

// Execute выполняет fn под выключателем инструмента. Пока выключатель разомкнут,
// fn не вызывается и возвращается gobreaker.ErrOpenState.
func (b *Breakers) Execute(tool models.Tool, fn func() (any, error)) (any, error) {
	cb, ok := b.breakers[tool]
	if !ok {
		return fn()
	}
	return cb.Execute(fn)
}
