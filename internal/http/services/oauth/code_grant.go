package oauth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

const errTokenNoLongerValid = "The token is no longer valid."

// codeGrant resuelve authorization_code y refresh_token. Ambos canjean un
// valor opaco de un solo uso y vuelven a leer el usuario del directorio.
type codeGrant struct {
	tokens         repository.TokenRepository
	authorizations repository.AuthorizationRepository
	scopes         repository.ScopeRepository
	directory      identity.Directory
	now            func() time.Time
}

func (g *codeGrant) Handle(ctx context.Context, req GrantRequest) (GrantOutcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("CodeGrant.Handle"),
		logger.ClientID(req.Client.ClientID), logger.GrantType(req.GrantType))

	var (
		raw  string
		kind types.TokenType
	)
	switch req.GrantType {
	case types.GrantTypeAuthorizationCode:
		raw, kind = req.Code, types.TokenTypeAuthorizationCode
		if raw == "" {
			return Forbid(oauth.InvalidRequest("The mandatory 'code' parameter is missing.")), nil
		}
	case types.GrantTypeRefreshToken:
		raw, kind = req.RefreshToken, types.TokenTypeRefresh
		if raw == "" {
			return Forbid(oauth.InvalidRequest("The mandatory 'refresh_token' parameter is missing.")), nil
		}
	default:
		return NotImplemented(), nil
	}

	tok, err := g.tokens.GetByReferenceID(ctx, tokens.SHA256Base64URL(raw))
	if err != nil {
		if repository.IsNotFound(err) {
			return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
		}
		return GrantOutcome{}, fmt.Errorf("code grant: lookup token: %w", err)
	}
	log = log.With(logger.TokenID(tok.ID), logger.AuthorizationID(tok.AuthorizationID))

	if tok.Type != kind || tok.ApplicationID != req.Client.ID {
		log.Debug("token type or client mismatch")
		return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
	}
	now := g.now()
	if tok.IsExpired(now) {
		return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
	}
	if tok.Status == types.StatusRedeemed {
		g.revokeOnReplay(ctx, tok)
		return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
	}
	if tok.Status != types.StatusValid {
		return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
	}

	if kind == types.TokenTypeAuthorizationCode {
		if f := checkCodeBinding(tok, req); f != nil {
			log.Debug("code binding rejected", logger.String("reason", f.Description))
			return Forbid(f), nil
		}
	}

	scopes := tok.Scopes
	if len(req.Scopes) > 0 {
		for _, s := range req.Scopes {
			if !slices.Contains(tok.Scopes, s) {
				return Forbid(oauth.InvalidScope("The 'scope' parameter must not include scopes that were not initially granted.")), nil
			}
		}
		scopes = req.Scopes
	}

	// D.6: la authorization puede haber sido revocada después de emitir el token
	if tok.AuthorizationID != "" {
		authz, err := g.authorizations.GetByID(ctx, tok.AuthorizationID)
		if err != nil && !repository.IsNotFound(err) {
			return GrantOutcome{}, fmt.Errorf("code grant: lookup authorization: %w", err)
		}
		if err != nil || authz.Status != types.StatusValid {
			log.Debug("authorization no longer valid")
			return Forbid(oauth.InvalidGrant("The authorization associated with the token is no longer valid.")), nil
		}
	}

	user, err := g.directory.FindByID(ctx, tok.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
		}
		return GrantOutcome{}, fmt.Errorf("code grant: find user: %w", err)
	}
	if !g.directory.CanSignIn(ctx, user) {
		return Forbid(oauth.InvalidGrant("The user is no longer allowed to sign in.")), nil
	}

	// canje atómico: sólo un request gana la transición valid→redeemed
	ok, err := g.tokens.TransitionStatus(ctx, tok.ID, types.StatusValid, types.StatusRedeemed)
	if err != nil {
		return GrantOutcome{}, fmt.Errorf("code grant: redeem token: %w", err)
	}
	if !ok {
		g.revokeOnReplay(ctx, tok)
		return Forbid(oauth.InvalidGrant(errTokenNoLongerValid)), nil
	}

	p := buildUserPrincipal(user)
	p.AuthorizationID = tok.AuthorizationID
	if err := attachScopes(ctx, g.scopes, p, scopes, claims.DirectGrant); err != nil {
		return GrantOutcome{}, err
	}
	out := SignIn(p)
	out.Nonce = tok.Properties[jwtx.PropNonce]
	log.Debug("token redeemed", logger.Subject(user.ID))
	return out, nil
}

// checkCodeBinding valida redirect_uri y PKCE contra lo guardado en el código.
func checkCodeBinding(tok *repository.Token, req GrantRequest) *oauth.Error {
	if stored := tok.Properties[jwtx.PropRedirectURI]; stored != "" && req.RedirectURI != stored {
		return oauth.InvalidGrant("The specified 'redirect_uri' parameter doesn't match the client redirection endpoint the authorization code was initially sent to.")
	}
	challenge := tok.Properties[jwtx.PropCodeChallenge]
	switch {
	case challenge == "" && req.CodeVerifier != "":
		return oauth.InvalidRequest("The 'code_verifier' parameter is uncalled for in this request.")
	case challenge != "" && req.CodeVerifier == "":
		return oauth.InvalidRequest("The mandatory 'code_verifier' parameter is missing.")
	case challenge != "" && !tokens.VerifyPKCE(req.CodeVerifier, challenge, tok.Properties[jwtx.PropCodeChallengeMethod]):
		return oauth.InvalidGrant("The specified 'code_verifier' parameter is invalid.")
	}
	return nil
}

// revokeOnReplay revoca todos los tokens de la authorization cuando se
// presenta un código o refresh ya canjeado. Best-effort.
func (g *codeGrant) revokeOnReplay(ctx context.Context, tok *repository.Token) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("CodeGrant.revokeOnReplay"), logger.TokenID(tok.ID))
	audit.Log(ctx, audit.EventCodeReplay, logger.TokenID(tok.ID), logger.AuthorizationID(tok.AuthorizationID), logger.Subject(tok.Subject))
	if tok.AuthorizationID == "" {
		return
	}
	linked, err := g.tokens.ListByAuthorizationID(ctx, tok.AuthorizationID)
	if err != nil {
		log.Warn("replay: list linked tokens failed", logger.Err(err))
		return
	}
	n := 0
	for _, t := range linked {
		if t.Status != types.StatusValid {
			continue
		}
		if err := g.tokens.UpdateStatus(ctx, t.ID, types.StatusRevoked); err != nil {
			log.Warn("replay: revoke failed", logger.TokenID(t.ID), logger.Err(err))
			continue
		}
		n++
	}
	metrics.TokensRevoked.WithLabelValues("replay").Add(float64(n))
	log.Info("replayed token, linked tokens revoked", logger.Count(n))
}
