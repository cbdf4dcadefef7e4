// Package identity es el directorio de usuarios que consumen los grants y el
// login: búsqueda por id/login, verificación de password con lockout y el
// chequeo "puede iniciar sesión".
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
)

// SignInResult es el resultado de CheckPasswordSignIn.
type SignInResult int

const (
	SignInFailed SignInResult = iota
	SignInSucceeded
	SignInLockedOut
	SignInNotAllowed
)

func (r SignInResult) String() string {
	switch r {
	case SignInSucceeded:
		return "succeeded"
	case SignInLockedOut:
		return "locked_out"
	case SignInNotAllowed:
		return "not_allowed"
	default:
		return "failed"
	}
}

// ErrUserNotFound se retorna cuando el id o login no existe.
var ErrUserNotFound = errors.New("identity: user not found")

// LockoutOptions configura el bloqueo por intentos fallidos.
// MaxFailedAttempts <= 0 desactiva el lockout.
type LockoutOptions struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// Directory es el contrato que consumen services de oauth y session.
type Directory interface {
	FindByID(ctx context.Context, id string) (*repository.User, error)
	FindByLogin(ctx context.Context, login string) (*repository.User, error)
	// CheckPasswordSignIn verifica la password y actualiza el contador de lockout.
	CheckPasswordSignIn(ctx context.Context, u *repository.User, plain string) (SignInResult, error)
	// CanSignIn: no deshabilitado y sin lockout vigente.
	CanSignIn(ctx context.Context, u *repository.User) bool
	// RejectUnknownLogin paga el mismo verify que una password incorrecta
	// para un login inexistente. Siempre retorna SignInFailed.
	RejectUnknownLogin(ctx context.Context, plain string) SignInResult
}

// Deps contiene las dependencias del directorio.
type Deps struct {
	Users   repository.UserRepository
	Lockout LockoutOptions
	Now     func() time.Time
	// Verify compara password contra hash. Default password.Verify.
	Verify func(plain, encoded string) bool
	// DummyParams son los parámetros del hash de RejectUnknownLogin; deben
	// coincidir con los de los hashes reales. Default password.Default.
	DummyParams password.Params
}

type directory struct {
	users   repository.UserRepository
	lockout LockoutOptions
	now     func() time.Time
	verify  func(plain, encoded string) bool

	dummyParams password.Params
	dummyOnce   sync.Once
	dummyHash   string
}

// NewDirectory crea el directorio.
func NewDirectory(d Deps) Directory {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	verify := d.Verify
	if verify == nil {
		verify = password.Verify
	}
	params := d.DummyParams
	if params == (password.Params{}) {
		params = password.Default
	}
	return &directory{users: d.Users, lockout: d.Lockout, now: now, verify: verify, dummyParams: params}
}

func (d *directory) FindByID(ctx context.Context, id string) (*repository.User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	u, err := d.users.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: get user: %w", err)
	}
	return u, nil
}

func (d *directory) FindByLogin(ctx context.Context, login string) (*repository.User, error) {
	if login == "" {
		return nil, ErrUserNotFound
	}
	u, err := d.users.FindByLogin(ctx, login)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: find user: %w", err)
	}
	return u, nil
}

func (d *directory) CanSignIn(_ context.Context, u *repository.User) bool {
	if u == nil || u.DisabledAt != nil {
		return false
	}
	return !u.IsLockedOut(d.now())
}

func (d *directory) CheckPasswordSignIn(ctx context.Context, u *repository.User, plain string) (SignInResult, error) {
	log := logger.From(ctx).With(logger.Layer("identity"), logger.Op("Directory.CheckPasswordSignIn"), logger.Subject(u.ID))

	if u.DisabledAt != nil {
		return SignInNotAllowed, nil
	}
	now := d.now()
	if u.IsLockedOut(now) {
		return SignInLockedOut, nil
	}

	if d.verify(plain, u.PasswordHash) {
		if u.AccessFailedCount > 0 || u.LockoutEnd != nil {
			if err := d.users.UpdateLockout(ctx, u.ID, repository.LockoutState{}); err != nil {
				return SignInFailed, fmt.Errorf("identity: reset lockout: %w", err)
			}
			u.AccessFailedCount, u.LockoutEnd = 0, nil
		}
		return SignInSucceeded, nil
	}

	if !u.LockoutEnabled || d.lockout.MaxFailedAttempts <= 0 {
		return SignInFailed, nil
	}

	st := repository.LockoutState{AccessFailedCount: u.AccessFailedCount + 1}
	result := SignInFailed
	if st.AccessFailedCount >= d.lockout.MaxFailedAttempts {
		end := now.Add(d.lockout.Duration)
		st = repository.LockoutState{LockoutEnd: &end}
		result = SignInLockedOut
		log.Warn("user locked out", logger.Count(u.AccessFailedCount+1))
	}
	if err := d.users.UpdateLockout(ctx, u.ID, st); err != nil {
		return SignInFailed, fmt.Errorf("identity: update lockout: %w", err)
	}
	u.AccessFailedCount, u.LockoutEnd = st.AccessFailedCount, st.LockoutEnd
	return result, nil
}

func (d *directory) RejectUnknownLogin(ctx context.Context, plain string) SignInResult {
	d.dummyOnce.Do(func() {
		h, err := password.Hash(d.dummyParams, "unknown-login-placeholder")
		if err != nil {
			logger.From(ctx).Warn("identity: dummy hash unavailable", logger.Err(err))
			return
		}
		d.dummyHash = h
	})
	d.verify(plain, d.dummyHash)
	return SignInFailed
}
