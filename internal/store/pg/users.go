package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
)

// ─── UserRepository ───

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, user_name, COALESCE(email, ''), email_verified, given_name, family_name, name,
	password_hash, security_stamp, roles, created_at, disabled_at, lockout_enabled, lockout_end, access_failed_count`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.EmailVerified, &u.GivenName, &u.FamilyName, &u.Name,
		&u.PasswordHash, &u.SecurityStamp, &u.Roles, &u.CreatedAt, &u.DisabledAt,
		&u.LockoutEnabled, &u.LockoutEnd, &u.AccessFailedCount)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM oidc_user WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get user", err)
	}
	return u, nil
}

func (r *userRepo) FindByLogin(ctx context.Context, login string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM oidc_user
		WHERE lower(user_name) = lower($1) OR lower(email) = lower($1)
		ORDER BY (lower(user_name) = lower($1)) DESC
		LIMIT 1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, login))
	if err != nil {
		return nil, mapErr("find user by login", err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO oidc_user (id, user_name, email, email_verified, given_name, family_name, name,
			password_hash, security_stamp, roles, created_at, disabled_at, lockout_enabled, lockout_end, access_failed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.pool.Exec(ctx, q, u.ID, u.UserName, nullIfEmpty(u.Email), u.EmailVerified, u.GivenName, u.FamilyName, u.Name,
		u.PasswordHash, u.SecurityStamp, nonNil(u.Roles), u.CreatedAt, u.DisabledAt, u.LockoutEnabled, u.LockoutEnd, u.AccessFailedCount)
	return mapErr("create user", err)
}

func (r *userRepo) UpdateLockout(ctx context.Context, id string, st repository.LockoutState) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE oidc_user SET access_failed_count = $2, lockout_end = $3 WHERE id = $1`,
		id, st.AccessFailedCount, st.LockoutEnd)
	if err != nil {
		return mapErr("update lockout", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
