package middlewares

import (
	"context"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session"
	ctxSessionIDKey ctxKey = "session_id"
)

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// GetRequestID obtiene el request id, o "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// WithSession inyecta la sesión resuelta y el id de la cookie.
func WithSession(ctx context.Context, sessionID string, p *dto.SessionPayload) context.Context {
	ctx = context.WithValue(ctx, ctxSessionIDKey, sessionID)
	return context.WithValue(ctx, ctxSessionKey, p)
}

// GetSession retorna la sesión autenticada o nil.
func GetSession(ctx context.Context) *dto.SessionPayload {
	p, _ := ctx.Value(ctxSessionKey).(*dto.SessionPayload)
	return p
}

// GetSubject retorna el subject de la sesión, o "" si no hay.
func GetSubject(ctx context.Context) string {
	if p := GetSession(ctx); p != nil {
		return p.Subject
	}
	return ""
}

// GetSessionID retorna el valor de la cookie de sesión, aunque no haya resuelto.
func GetSessionID(ctx context.Context) string {
	s, _ := ctx.Value(ctxSessionIDKey).(string)
	return s
}
