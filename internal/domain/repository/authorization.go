package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

// Authorization registra que un subject aprobó una aplicación para un set de scopes.
// Solo transiciona valid → revoked.
type Authorization struct {
	ID            string
	Subject       string
	ApplicationID string
	Type          types.AuthorizationType
	Status        types.Status
	Scopes        []string
	CreatedAt     time.Time
}

// CoversScopes reporta si el set otorgado contiene todos los requested.
func (a *Authorization) CoversScopes(requested []string) bool {
	granted := make(map[string]struct{}, len(a.Scopes))
	for _, s := range a.Scopes {
		granted[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// AuthorizationFilter filtra Find. Campos vacíos no filtran.
type AuthorizationFilter struct {
	Subject       string
	ApplicationID string
	Status        types.Status
	Type          types.AuthorizationType
}

// AuthorizationRepository es el store de authorization records.
type AuthorizationRepository interface {
	// Create persiste el record. Si ID está vacío el adapter lo genera.
	Create(ctx context.Context, a *Authorization) error

	// GetByID busca por id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Authorization, error)

	// Find retorna los records que matchean, ordenados por CreatedAt descendente.
	Find(ctx context.Context, f AuthorizationFilter) ([]Authorization, error)

	// UpdateStatus cambia el status. ErrNotFound si no existe.
	UpdateStatus(ctx context.Context, id string, status types.Status) error
}
