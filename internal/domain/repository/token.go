package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

// Token es un token persistido (access, refresh, id_token o authorization code).
//
// ReferenceID es el SHA-256 base64url del valor opaco entregado al cliente
// (refresh tokens y códigos); para JWTs va vacío y se busca por ID (= jti).
type Token struct {
	ID              string
	ReferenceID     string
	Type            types.TokenType
	Subject         string
	ApplicationID   string
	AuthorizationID string
	Status          types.Status
	Scopes          []string
	// Properties guarda datos del flujo (redirect_uri, code_challenge, ...).
	Properties map[string]string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	RedeemedAt *time.Time
}

// IsExpired reporta si ExpiresAt ya pasó. Sin ExpiresAt nunca expira.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// IsActive: status valid y no expirado.
func (t *Token) IsActive(now time.Time) bool {
	return t.Status == types.StatusValid && !t.IsExpired(now)
}

// TokenRepository es el store de tokens.
type TokenRepository interface {
	// Create persiste el token. Si ID está vacío el adapter lo genera.
	Create(ctx context.Context, t *Token) error

	// GetByID busca por id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Token, error)

	// GetByReferenceID busca por reference id. ErrNotFound si no existe.
	GetByReferenceID(ctx context.Context, ref string) (*Token, error)

	// UpdateStatus fija el status sin condición. ErrNotFound si no existe.
	UpdateStatus(ctx context.Context, id string, status types.Status) error

	// TransitionStatus cambia from → to solo si el status actual es from.
	// Retorna false (sin error) si otro request ya lo cambió.
	TransitionStatus(ctx context.Context, id string, from, to types.Status) (bool, error)

	// ListByAuthorizationID enumera todos los tokens ligados a la authorization.
	ListByAuthorizationID(ctx context.Context, authorizationID string) ([]Token, error)
}
