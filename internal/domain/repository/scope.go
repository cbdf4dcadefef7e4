package repository

import "context"

// Scope es una entrada del registro de scopes.
// Resources son los identificadores de API (audiences) que el scope habilita.
type Scope struct {
	Name        string
	DisplayName string
	Description string
	Resources   []string
}

// ScopeRepository es el registro de scopes.
type ScopeRepository interface {
	// GetByName busca por nombre. ErrNotFound si no existe.
	GetByName(ctx context.Context, name string) (*Scope, error)

	List(ctx context.Context) ([]Scope, error)

	// Upsert crea o reemplaza el scope por nombre.
	Upsert(ctx context.Context, s *Scope) error

	// ListResources retorna los resources de los scopes dados, sin duplicados
	// y en orden estable. Los nombres desconocidos se ignoran.
	ListResources(ctx context.Context, names []string) ([]string, error)
}
