// Package oauth contiene el núcleo de orquestación de /connect/*: motor de
// autorización, resolver de grants con sus estrategias, introspección y revocación.
package oauth

import (
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
)

// Options configura el comportamiento de los endpoints.
type Options struct {
	// LoginURL es el destino del challenge de /authorize (se le agrega return_to).
	LoginURL string
	// RequirePKCE obliga code_challenge para clientes públicos.
	RequirePKCE bool
	// GrantTypes habilitados en el servidor. Un grant fuera de la lista es
	// unsupported_grant_type; uno habilitado sin estrategia es un error fatal.
	GrantTypes []string
	Now        func() time.Time
}

// Deps contiene las dependencias de los services oauth.
type Deps struct {
	Applications   repository.ApplicationRepository
	Scopes         repository.ScopeRepository
	Authorizations repository.AuthorizationRepository
	Tokens         repository.TokenRepository
	Directory      identity.Directory
	Issuer         *jwtx.Issuer
	Options        Options
}

// Services agrupa los services del dominio oauth.
type Services struct {
	Authorize  AuthorizeService
	Token      TokenService
	Introspect IntrospectService
	Revoke     RevokeService
}

// NewServices crea el agregador de services oauth.
func NewServices(d Deps) Services {
	if d.Options.Now == nil {
		d.Options.Now = time.Now
	}
	if d.Options.LoginURL == "" {
		d.Options.LoginURL = "/connect/login"
	}
	clients := NewClientAuthenticator(d.Applications)
	return Services{
		Authorize:  NewAuthorizeService(d),
		Token:      NewTokenService(d, clients),
		Introspect: NewIntrospectService(d, clients),
		Revoke:     NewRevokeService(d, clients),
	}
}
