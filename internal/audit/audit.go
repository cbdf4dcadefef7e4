// Package audit emite eventos de auditoría (consentimientos, revocaciones,
// logins, logouts) por un logger dedicado "audit".
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventLoginSucceeded     = "login.succeeded"
	EventLoginFailed        = "login.failed"
	EventLogout             = "logout"
	EventConsentGranted     = "consent.granted"
	EventConsentDenied      = "consent.denied"
	EventAuthorizationReuse = "authorization.reused"
	EventTokenRevoked       = "token.revoked"
	EventCodeReplay         = "code.replay"
)

// Log escribe un evento de auditoría. Hereda request_id del logger del ctx.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append(fields, zap.String("event", event))...)
}
