package middlewares

import (
	"context"
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	sessionsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// SessionResolver resuelve el valor de la cookie a una sesión.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*dto.SessionPayload, error)
}

// WithSessionAuth lee la cookie de sesión y, si resuelve, deja la sesión en
// el contexto. Nunca rechaza: las rutas que la exigen usan RequireSession.
func WithSessionAuth(resolver SessionResolver, cookieName string) Middleware {
	if cookieName == "" {
		cookieName = "sid"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie(cookieName)
			if err != nil || ck.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			p, err := resolver.Resolve(ctx, ck.Value)
			if err != nil {
				if !errors.Is(err, sessionsvc.ErrNoSession) {
					logger.From(ctx).Warn("session resolve failed", logger.Layer("middleware"), logger.Err(err))
				}
				p = nil
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, ck.Value, p)))
		})
	}
}

// RequireSession responde 401 si no hay sesión autenticada.
func RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetSubject(r.Context()) == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
