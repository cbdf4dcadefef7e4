package repository

import (
	"context"
	"time"
)

// User es una cuenta del directorio de usuarios.
type User struct {
	ID            string
	UserName      string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Name          string
	PasswordHash  string
	SecurityStamp string
	Roles         []string
	CreatedAt     time.Time

	// DisabledAt != nil bloquea el login de forma administrativa.
	DisabledAt *time.Time

	LockoutEnabled    bool
	LockoutEnd        *time.Time
	AccessFailedCount int
}

// IsLockedOut reporta si el lockout está vigente en now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// LockoutState es el estado mutable de lockout de un usuario.
type LockoutState struct {
	AccessFailedCount int
	LockoutEnd        *time.Time
}

// UserRepository es el directorio de usuarios.
type UserRepository interface {
	// GetByID busca por id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// FindByLogin busca por username o email (case-insensitive).
	// ErrNotFound si no existe.
	FindByLogin(ctx context.Context, login string) (*User, error)

	// Create crea un usuario. ErrConflict si username o email ya existen.
	Create(ctx context.Context, u *User) error

	// UpdateLockout persiste el contador de fallos y el fin del lockout.
	UpdateLockout(ctx context.Context, id string, st LockoutState) error
}
