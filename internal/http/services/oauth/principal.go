package oauth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
)

// buildUserPrincipal arma el principal desde el directorio. Los claims se
// releen en cada emisión; nunca se copian de un token anterior.
func buildUserPrincipal(u *repository.User) *claims.Principal {
	p := claims.NewPrincipal(u.ID)
	name := u.Name
	if name == "" {
		name = u.UserName
	}
	p.Add(claims.TypeName, name)
	p.Add(claims.TypePreferredUsername, u.UserName)
	p.Add(claims.TypeEmail, u.Email)
	p.Add(claims.TypeGivenName, u.GivenName)
	p.Add(claims.TypeFamilyName, u.FamilyName)
	p.AddAll(claims.TypeRole, u.Roles)
	p.Add(claims.TypeSecurityStamp, u.SecurityStamp)
	return p
}

// attachScopes fija scopes y resources y aplica la política de destinos.
func attachScopes(ctx context.Context, reg repository.ScopeRepository, p *claims.Principal, scopes []string, pol claims.Policy) error {
	p.SetScopes(scopes)
	res, err := reg.ListResources(ctx, p.Scopes)
	if err != nil {
		return fmt.Errorf("list scope resources: %w", err)
	}
	p.Resources = res
	p.ApplyPolicy(pol)
	return nil
}
