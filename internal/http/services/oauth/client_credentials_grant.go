package oauth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// clientCredentialsGrant: el principal es la aplicación misma.
type clientCredentialsGrant struct {
	applications repository.ApplicationRepository
	scopes       repository.ScopeRepository
}

func (g *clientCredentialsGrant) Handle(ctx context.Context, req GrantRequest) (GrantOutcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("ClientCredentialsGrant.Handle"), logger.ClientID(req.Client.ClientID))

	if !req.Client.IsConfidential() {
		return Forbid(oauth.UnauthorizedClient("Public clients are not allowed to use the client credentials grant.")), nil
	}

	app, err := g.applications.GetByClientID(ctx, req.Client.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return GrantOutcome{}, fmt.Errorf("%w: client application %q vanished", ErrPrecondition, req.Client.ClientID)
		}
		return GrantOutcome{}, fmt.Errorf("client credentials: lookup client: %w", err)
	}

	p := claims.NewPrincipal(app.ClientID)
	p.Add(claims.TypeName, app.DisplayName)
	if err := attachScopes(ctx, g.scopes, p, req.Scopes, claims.DirectGrant); err != nil {
		return GrantOutcome{}, err
	}
	log.Debug("client principal built", logger.Scopes(p.Scopes))
	return SignIn(p), nil
}
