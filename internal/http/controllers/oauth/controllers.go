// Package oauth contiene los controllers de /connect/*.
package oauth

import svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"

// Controllers agrupa los controllers del dominio OAuth.
type Controllers struct {
	Authorize  *AuthorizeController
	Token      *TokenController
	Introspect *IntrospectController
	Revoke     *RevokeController
}

// NewControllers crea el agregador de controllers OAuth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Authorize:  NewAuthorizeController(s.Authorize),
		Token:      NewTokenController(s.Token),
		Introspect: NewIntrospectController(s.Introspect),
		Revoke:     NewRevokeController(s.Revoke),
	}
}
