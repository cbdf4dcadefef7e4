package repository

import (
	"context"
	"slices"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

// Application es una aplicación cliente registrada.
type Application struct {
	ID                     string
	ClientID               string
	DisplayName            string
	ClientType             types.ClientType
	ConsentType            types.ConsentType
	SecretHash             string // vacío para clientes públicos
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Permissions            []string
	CreatedAt              time.Time
}

// HasPermission reporta si la aplicación tiene el permiso exacto (ej. "gt:password").
func (a *Application) HasPermission(p string) bool {
	return slices.Contains(a.Permissions, p)
}

// IsConfidential reporta si el cliente debe autenticarse con secreto.
func (a *Application) IsConfidential() bool {
	return a.ClientType == types.ClientTypeConfidential
}

// HasRedirectURI compara por igualdad exacta, sin normalizar.
func (a *Application) HasRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(a.RedirectURIs, uri)
}

// HasPostLogoutRedirectURI compara por igualdad exacta.
func (a *Application) HasPostLogoutRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(a.PostLogoutRedirectURIs, uri)
}

// ApplicationRepository es el registro de aplicaciones cliente.
type ApplicationRepository interface {
	// GetByID busca por id interno. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Application, error)

	// GetByClientID busca por client_id público. ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*Application, error)

	// Create registra una aplicación. ErrConflict si el client_id ya existe.
	Create(ctx context.Context, app *Application) error

	List(ctx context.Context) ([]Application, error)
}
