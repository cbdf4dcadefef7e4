package oauth

import (
	"context"
	"fmt"
	"slices"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/validation"
)

// standardScopes existen aunque no estén en el registro.
var standardScopes = []string{
	types.ScopeOpenID, types.ScopeProfile, types.ScopeEmail, types.ScopeRoles, types.ScopeOfflineAccess,
}

// resolveScopes parsea y valida el parámetro scope contra el registro y los
// permisos del cliente. openid no requiere permiso; offline_access requiere
// gt:refresh_token; el resto requiere scp:<name>.
func resolveScopes(ctx context.Context, reg repository.ScopeRepository, app *repository.Application, raw string) ([]string, error) {
	scopes, ok := validation.ParseScopeParam(raw)
	if !ok {
		return nil, oauth.InvalidScope("The 'scope' parameter is malformed.")
	}
	for _, sc := range scopes {
		switch sc {
		case types.ScopeOpenID:
			continue
		case types.ScopeOfflineAccess:
			if !app.HasPermission(types.PermissionPrefixGrantType + types.GrantTypeRefreshToken) {
				return nil, oauth.InvalidScope("The client application is not allowed to use the 'offline_access' scope.")
			}
			continue
		}
		if !slices.Contains(standardScopes, sc) {
			if _, err := reg.GetByName(ctx, sc); err != nil {
				if repository.IsNotFound(err) {
					return nil, oauth.InvalidScope(fmt.Sprintf("The scope '%s' is not supported.", sc))
				}
				return nil, fmt.Errorf("lookup scope %q: %w", sc, err)
			}
		}
		if !app.HasPermission(types.PermissionPrefixScope + sc) {
			return nil, oauth.InvalidScope(fmt.Sprintf("This client application is not allowed to use the scope '%s'.", sc))
		}
	}
	return scopes, nil
}
