package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

// ─── AuthorizationRepository ───

type authorizationRepo struct{ pool *pgxpool.Pool }

const authorizationColumns = `id, subject, application_id, type, status, scopes, created_at`

func scanAuthorization(row pgx.Row) (repository.Authorization, error) {
	var (
		a       repository.Authorization
		typ, st string
	)
	err := row.Scan(&a.ID, &a.Subject, &a.ApplicationID, &typ, &st, &a.Scopes, &a.CreatedAt)
	a.Type = types.AuthorizationType(typ)
	a.Status = types.Status(st)
	return a, err
}

func (r *authorizationRepo) Create(ctx context.Context, a *repository.Authorization) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO oidc_authorization (id, subject, application_id, type, status, scopes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, q, a.ID, a.Subject, a.ApplicationID, string(a.Type), string(a.Status), nonNil(a.Scopes), a.CreatedAt)
	return mapErr("create authorization", err)
}

func (r *authorizationRepo) GetByID(ctx context.Context, id string) (*repository.Authorization, error) {
	a, err := scanAuthorization(r.pool.QueryRow(ctx, `SELECT `+authorizationColumns+` FROM oidc_authorization WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get authorization", err)
	}
	return &a, nil
}

func (r *authorizationRepo) Find(ctx context.Context, f repository.AuthorizationFilter) ([]repository.Authorization, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("subject", f.Subject)
	add("application_id", f.ApplicationID)
	add("status", string(f.Status))
	add("type", string(f.Type))

	q := `SELECT ` + authorizationColumns + ` FROM oidc_authorization`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("find authorizations", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Authorization, error) {
		return scanAuthorization(row)
	})
	return out, mapErr("find authorizations", err)
}

func (r *authorizationRepo) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE oidc_authorization SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return mapErr("update authorization status", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
