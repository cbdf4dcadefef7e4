package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/util"
)

// errInvalidCredentials es la misma respuesta para usuario inexistente,
// password incorrecta, lockout y cuenta deshabilitada.
const errInvalidCredentials = "The username/password couple is invalid."

type passwordGrant struct {
	directory identity.Directory
	scopes    repository.ScopeRepository
}

func (g *passwordGrant) Handle(ctx context.Context, req GrantRequest) (GrantOutcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("PasswordGrant.Handle"), logger.ClientID(req.Client.ClientID))

	if req.Username == "" || req.Password == "" {
		return Forbid(oauth.InvalidRequest("The mandatory 'username' and 'password' parameters are missing.")), nil
	}

	user, err := g.directory.FindByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			g.directory.RejectUnknownLogin(ctx, req.Password)
			log.Debug("unknown login", logger.String("login", util.MaskLogin(req.Username)))
			audit.Log(ctx, audit.EventLoginFailed, logger.ClientID(req.Client.ClientID), logger.String("reason", "credentials"))
			return Forbid(oauth.InvalidGrant(errInvalidCredentials)), nil
		}
		return GrantOutcome{}, fmt.Errorf("password grant: find user: %w", err)
	}

	res, err := g.directory.CheckPasswordSignIn(ctx, user, req.Password)
	if err != nil {
		return GrantOutcome{}, fmt.Errorf("password grant: check password: %w", err)
	}
	if res != identity.SignInSucceeded {
		log.Debug("password sign-in rejected", logger.Subject(user.ID), logger.String("result", res.String()))
		audit.Log(ctx, audit.EventLoginFailed, logger.Subject(user.ID), logger.ClientID(req.Client.ClientID), logger.String("reason", res.String()))
		return Forbid(oauth.InvalidGrant(errInvalidCredentials)), nil
	}

	p := buildUserPrincipal(user)
	if err := attachScopes(ctx, g.scopes, p, req.Scopes, claims.DirectGrant); err != nil {
		return GrantOutcome{}, err
	}
	audit.Log(ctx, audit.EventLoginSucceeded, logger.Subject(user.ID), logger.ClientID(req.Client.ClientID), logger.GrantType("password"))
	return SignIn(p), nil
}
