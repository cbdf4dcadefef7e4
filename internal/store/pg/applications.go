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

// ─── ApplicationRepository ───

type applicationRepo struct{ pool *pgxpool.Pool }

const applicationColumns = `id, client_id, display_name, client_type, consent_type, COALESCE(secret_hash, ''),
	redirect_uris, post_logout_redirect_uris, permissions, created_at`

func scanApplication(row pgx.Row) (*repository.Application, error) {
	var (
		a                   repository.Application
		clientType, consent string
	)
	if err := row.Scan(&a.ID, &a.ClientID, &a.DisplayName, &clientType, &consent, &a.SecretHash,
		&a.RedirectURIs, &a.PostLogoutRedirectURIs, &a.Permissions, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ClientType = types.ClientType(clientType)
	ct, err := types.ParseConsentType(consent)
	if err != nil {
		return nil, err
	}
	a.ConsentType = ct
	return &a, nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*repository.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM oidc_application WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get application", err)
	}
	return a, nil
}

func (r *applicationRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM oidc_application WHERE client_id = $1`, clientID))
	if err != nil {
		return nil, mapErr("get application by client_id", err)
	}
	return a, nil
}

func (r *applicationRepo) Create(ctx context.Context, a *repository.Application) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO oidc_application (id, client_id, display_name, client_type, consent_type, secret_hash,
			redirect_uris, post_logout_redirect_uris, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, q, a.ID, a.ClientID, a.DisplayName, string(a.ClientType), a.ConsentType.String(),
		nullIfEmpty(a.SecretHash), nonNil(a.RedirectURIs), nonNil(a.PostLogoutRedirectURIs), nonNil(a.Permissions), a.CreatedAt)
	return mapErr("create application", err)
}

func (r *applicationRepo) List(ctx context.Context) ([]repository.Application, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+applicationColumns+` FROM oidc_application ORDER BY client_id`)
	if err != nil {
		return nil, mapErr("list applications", err)
	}
	defer rows.Close()
	var out []repository.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, mapErr("scan application", err)
		}
		out = append(out, *a)
	}
	return out, mapErr("list applications", rows.Err())
}

// nonNil evita insertar NULL en columnas TEXT[] NOT NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
