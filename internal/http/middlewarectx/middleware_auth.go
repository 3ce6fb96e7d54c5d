// Package middlewarectx содержит HTTP middleware шлюза: извлечение пользователя
// из сессионного JWT и ограничение частоты запросов.
//
// Identity не отклоняет анонимные запросы, а только кладёт идентификатор
// пользователя в контекст. Решение об отказе принимает обработчик
// (через guard) либо RequireUser.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/aihub-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserID ключ идентификатора пользователя в контексте.
const UserID Key = "user_id"

// TokenParser проверяет сессионный токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.Claims, error)
}

// Identity возвращает middleware, которое проверяет Bearer-токен и при успехе
// кладёт идентификатор пользователя в контекст.
func Identity(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Identity"

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Debug("invalid or expired token",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID())))
		})
	}
}

// WithUserID возвращает контекст с идентификатором пользователя.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserID, userID)
}

// UserIDFromContext возвращает идентификатор пользователя или пустую строку.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserID).(string)
	return userID
}

// RequireUser отклоняет запросы без пользователя с 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			render.Status(r, http.StatusUnauthorized)
			render.PlainText(w, r, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
