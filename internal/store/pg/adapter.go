// Package pg implementa el adapter PostgreSQL del store.
// Usa pgxpool directamente; las migraciones van embebidas en el binario.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty retorna nil para strings vacíos (columnas opcionales).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapErr traduce errores de pgx a los sentinels de repository.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("pg: %s: %w", op, repository.ErrConflict)
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	log := logger.From(ctx).With(logger.Layer("store"), logger.Component("pg"))
	tries := uint(1)
	if cfg.ConnectRetries > 0 {
		tries += uint(cfg.ConnectRetries)
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn("postgres not ready, retrying", logger.Err(err), logger.Duration(d))
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *pgConnection) Applications() repository.ApplicationRepository {
	return &applicationRepo{pool: c.pool}
}
func (c *pgConnection) Users() repository.UserRepository   { return &userRepo{pool: c.pool} }
func (c *pgConnection) Scopes() repository.ScopeRepository { return &scopeRepo{pool: c.pool} }
func (c *pgConnection) Authorizations() repository.AuthorizationRepository {
	return &authorizationRepo{pool: c.pool}
}
func (c *pgConnection) Tokens() repository.TokenRepository { return &tokenRepo{pool: c.pool} }

// Migrate implementa store.Migratable.
func (c *pgConnection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return newMigrator().Run(ctx, c.pool)
}
