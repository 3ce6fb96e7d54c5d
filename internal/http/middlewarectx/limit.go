package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/aihub-gateway/internal/http/response"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter держит отдельный token bucket на каждый ключ.
// Ключи, к которым не обращались дольше idle, удаляются.
type KeyedLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

// NewKeyedLimiter создаёт ограничитель с limit запросов в секунду и запасом burst на ключ.
func NewKeyedLimiter(limit rate.Limit, burst int, idle time.Duration) *KeyedLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &KeyedLimiter{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow расходует токен ключа key.
func (k *KeyedLimiter) Allow(key string) bool {
	now := k.now()

	k.mu.Lock()
	if now.Sub(k.lastSweep) >= k.idle {
		for id, e := range k.entries {
			if now.Sub(e.lastSeen) >= k.idle {
				delete(k.entries, id)
			}
		}
		k.lastSweep = now
	}
	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	k.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len число отслеживаемых ключей.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// RateLimit отклоняет запросы сверх лимита с 429. Лимит считается
// по пользователю, а для анонимных запросов по адресу клиента,
// поэтому должен стоять после Identity и middleware.RealIP.
func RateLimit(limiter *KeyedLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(r)
			if !limiter.Allow(key) {
				log.Warn("too many requests",
					slog.String("op", "middlewarectx.RateLimit"),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("key", key),
				)
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
