package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
)

// ─── ScopeRepository ───

type scopeRepo struct{ pool *pgxpool.Pool }

func (r *scopeRepo) GetByName(ctx context.Context, name string) (*repository.Scope, error) {
	var s repository.Scope
	err := r.pool.QueryRow(ctx,
		`SELECT name, display_name, description, resources FROM oidc_scope WHERE name = $1`, name,
	).Scan(&s.Name, &s.DisplayName, &s.Description, &s.Resources)
	if err != nil {
		return nil, mapErr("get scope", err)
	}
	return &s, nil
}

func (r *scopeRepo) List(ctx context.Context) ([]repository.Scope, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, display_name, description, resources FROM oidc_scope ORDER BY name`)
	if err != nil {
		return nil, mapErr("list scopes", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Scope, error) {
		var s repository.Scope
		err := row.Scan(&s.Name, &s.DisplayName, &s.Description, &s.Resources)
		return s, err
	})
	return out, mapErr("list scopes", err)
}

func (r *scopeRepo) Upsert(ctx context.Context, s *repository.Scope) error {
	if s.Name == "" {
		return repository.ErrInvalidInput
	}
	const q = `
		INSERT INTO oidc_scope (name, display_name, description, resources)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET display_name = EXCLUDED.display_name, description = EXCLUDED.description, resources = EXCLUDED.resources`
	_, err := r.pool.Exec(ctx, q, s.Name, s.DisplayName, s.Description, nonNil(s.Resources))
	return mapErr("upsert scope", err)
}

func (r *scopeRepo) ListResources(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	const q = `
		SELECT DISTINCT res
		FROM oidc_scope, unnest(resources) AS res
		WHERE name = ANY($1)
		ORDER BY res`
	rows, err := r.pool.Query(ctx, q, names)
	if err != nil {
		return nil, mapErr("list resources", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return out, mapErr("list resources", err)
}
