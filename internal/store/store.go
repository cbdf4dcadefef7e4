// Package store provee el registry de adapters de almacenamiento y la conexión
// agregada que consumen los services.
//
// Adapters disponibles:
//   - "postgres": internal/store/pg (pgxpool, migraciones embebidas)
//   - "memory":   internal/store/memory (dev y tests)
//
// Cada adapter se registra en init(); el binario los importa con blank import.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
)

// Adapter crea conexiones a un backend.
type Adapter interface {
	// Name retorna el nombre del adapter ("postgres", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión activa con acceso a los repositorios.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	// ─── Repositorios ───

	Applications() repository.ApplicationRepository
	Users() repository.UserRepository
	Scopes() repository.ScopeRepository
	Authorizations() repository.AuthorizationRepository
	Tokens() repository.TokenRepository
}

// Migratable la implementan las conexiones con schema propio (postgres).
type Migratable interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "memory"
	Name string

	// DSN connection string (postgres)
	DSN string

	// Pool settings
	MaxConns int
	MinConns int

	// ConnectRetries reintentos del primer ping (backoff exponencial). 0 = sin reintentos.
	ConnectRetries int
	ConnectTimeout time.Duration
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open abre una conexión usando el adapter de la config.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("store: adapter %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
