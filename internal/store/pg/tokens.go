package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

// ─── TokenRepository ───

type tokenRepo struct{ pool *pgxpool.Pool }

const tokenColumns = `id, COALESCE(reference_id, ''), type, subject, application_id, COALESCE(authorization_id, ''),
	status, scopes, properties, created_at, expires_at, redeemed_at`

func scanToken(row pgx.Row) (repository.Token, error) {
	var (
		t       repository.Token
		typ, st string
	)
	err := row.Scan(&t.ID, &t.ReferenceID, &typ, &t.Subject, &t.ApplicationID, &t.AuthorizationID,
		&st, &t.Scopes, &t.Properties, &t.CreatedAt, &t.ExpiresAt, &t.RedeemedAt)
	t.Type = types.TokenType(typ)
	t.Status = types.Status(st)
	return t, err
}

func (r *tokenRepo) Create(ctx context.Context, t *repository.Token) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	props := t.Properties
	if props == nil {
		props = map[string]string{}
	}
	const q = `
		INSERT INTO oidc_token (id, reference_id, type, subject, application_id, authorization_id,
			status, scopes, properties, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, q, t.ID, nullIfEmpty(t.ReferenceID), string(t.Type), t.Subject, t.ApplicationID,
		nullIfEmpty(t.AuthorizationID), string(t.Status), nonNil(t.Scopes), props, t.CreatedAt, t.ExpiresAt)
	return mapErr("create token", err)
}

func (r *tokenRepo) GetByID(ctx context.Context, id string) (*repository.Token, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM oidc_token WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get token", err)
	}
	return &t, nil
}

func (r *tokenRepo) GetByReferenceID(ctx context.Context, ref string) (*repository.Token, error) {
	if ref == "" {
		return nil, repository.ErrNotFound
	}
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM oidc_token WHERE reference_id = $1`, ref))
	if err != nil {
		return nil, mapErr("get token by reference", err)
	}
	return &t, nil
}

func (r *tokenRepo) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE oidc_token SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return mapErr("update token status", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// TransitionStatus es un compare-and-set: el UPDATE sólo matchea si el status
// actual es from, así dos redenciones concurrentes no pueden ganar ambas.
func (r *tokenRepo) TransitionStatus(ctx context.Context, id string, from, to types.Status) (bool, error) {
	const q = `
		UPDATE oidc_token
		SET status = $3,
		    redeemed_at = CASE WHEN $3 = 'redeemed' THEN NOW() ELSE redeemed_at END
		WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return false, mapErr("transition token status", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM oidc_token WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, mapErr("transition token status", err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *tokenRepo) ListByAuthorizationID(ctx context.Context, authorizationID string) ([]repository.Token, error) {
	if authorizationID == "" {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM oidc_token WHERE authorization_id = $1 ORDER BY created_at`, authorizationID)
	if err != nil {
		return nil, mapErr("list tokens by authorization", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repository.Token, error) {
		return scanToken(row)
	})
	return out, mapErr("list tokens by authorization", err)
}
