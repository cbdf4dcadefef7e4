// Package session contiene login por cookie, resolución de sesión y el
// Session Terminator (logout / end-session).
package session

import (
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
)

// Deps contiene las dependencias de los services de sesión.
type Deps struct {
	Cache        cache.Client
	Directory    identity.Directory
	Applications repository.ApplicationRepository
	Issuer       *jwtx.Issuer
	Cookie       dto.CookieConfig
	Now          func() time.Time
}

// Services agrupa los services del dominio session.
type Services struct {
	Store  Store
	Login  LoginService
	Logout LogoutService
}

// NewServices crea el agregador de services de sesión.
func NewServices(d Deps) Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cookie.TTL <= 0 {
		d.Cookie.TTL = 8 * time.Hour
	}
	st := NewStore(d.Cache, d.Now)
	return Services{
		Store:  st,
		Login:  NewLoginService(LoginDeps{Store: st, Directory: d.Directory, TTL: d.Cookie.TTL, Now: d.Now}),
		Logout: NewLogoutService(LogoutDeps{Store: st, Applications: d.Applications, Issuer: d.Issuer, Cookie: d.Cookie}),
	}
}
