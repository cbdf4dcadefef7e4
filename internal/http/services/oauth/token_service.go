package oauth

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// DefaultGrantTypes son los grants habilitados si Options.GrantTypes está vacío.
var DefaultGrantTypes = []string{
	types.GrantTypeAuthorizationCode,
	types.GrantTypeRefreshToken,
	types.GrantTypePassword,
	types.GrantTypeClientCredentials,
}

// TokenService implementa POST /connect/token.
type TokenService interface {
	// Exchange retorna *oauth.Error para rechazos de protocolo; cualquier otro
	// error (ErrPrecondition, ErrGrantNotImplemented, store) es fatal.
	Exchange(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
}

type tokenService struct {
	clients    ClientAuthenticator
	scopes     repository.ScopeRepository
	issuer     *jwtx.Issuer
	enabled    []string
	strategies map[string]grantStrategy
}

// NewTokenService crea el resolver de grants con sus estrategias.
func NewTokenService(d Deps, clients ClientAuthenticator) TokenService {
	now := d.Options.Now
	if now == nil {
		now = time.Now
	}
	enabled := d.Options.GrantTypes
	if len(enabled) == 0 {
		enabled = DefaultGrantTypes
	}
	code := &codeGrant{
		tokens:         d.Tokens,
		authorizations: d.Authorizations,
		scopes:         d.Scopes,
		directory:      d.Directory,
		now:            now,
	}
	return &tokenService{
		clients: clients,
		scopes:  d.Scopes,
		issuer:  d.Issuer,
		enabled: enabled,
		strategies: map[string]grantStrategy{
			types.GrantTypePassword:          &passwordGrant{directory: d.Directory, scopes: d.Scopes},
			types.GrantTypeAuthorizationCode: code,
			types.GrantTypeRefreshToken:      code,
			types.GrantTypeClientCredentials: &clientCredentialsGrant{applications: d.Applications, scopes: d.Scopes},
		},
	}
}

func (s *tokenService) Exchange(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.Exchange"),
		logger.GrantType(req.GrantType), logger.ClientID(req.Client.ClientID))

	if req.GrantType == "" {
		return nil, oauth.InvalidRequest("The mandatory 'grant_type' parameter is missing.")
	}
	if !slices.Contains(s.enabled, req.GrantType) {
		metrics.GrantOutcomes.WithLabelValues("unsupported", "error").Inc()
		return nil, oauth.UnsupportedGrantType("The specified 'grant_type' parameter is not supported.")
	}

	app, err := s.clients.Authenticate(ctx, req.Client)
	if err != nil {
		s.count(req.GrantType, "error")
		return nil, err
	}
	if !app.HasPermission(types.PermissionPrefixEndpoint + types.PermissionEndpointToken) {
		s.count(req.GrantType, "error")
		return nil, oauth.UnauthorizedClient("This client application is not allowed to use the token endpoint.")
	}
	if !app.HasPermission(types.PermissionPrefixGrantType + req.GrantType) {
		s.count(req.GrantType, "error")
		return nil, oauth.UnauthorizedClient("This client application is not allowed to use the specified grant type.")
	}

	scopes, err := resolveScopes(ctx, s.scopes, app, req.Scope)
	if err != nil {
		s.count(req.GrantType, "error")
		return nil, err
	}

	outcome := NotImplemented()
	if strategy, ok := s.strategies[req.GrantType]; ok {
		outcome, err = strategy.Handle(ctx, GrantRequest{TokenRequest: req, Client: app, Scopes: scopes})
		if err != nil {
			s.count(req.GrantType, "error")
			log.Error("grant strategy failed", logger.Err(err))
			return nil, err
		}
	}
	s.count(req.GrantType, outcome.Kind.String())

	switch outcome.Kind {
	case OutcomeForbid:
		log.Debug("grant forbidden", logger.String("error", outcome.Error.Code))
		return nil, outcome.Error
	case OutcomeNotImplemented:
		log.Error("grant enabled without strategy")
		return nil, fmt.Errorf("%w: %s", ErrGrantNotImplemented, req.GrantType)
	}

	set, err := s.issuer.IssueTokens(ctx, app, outcome.Principal, jwtx.IssueOptions{Nonce: outcome.Nonce})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	log.Info("tokens issued", logger.Subject(outcome.Principal.Subject()), logger.TokenID(set.AccessTokenID))
	return &dto.TokenResponse{
		AccessToken:  set.AccessToken,
		TokenType:    set.TokenType,
		ExpiresIn:    set.ExpiresIn,
		Scope:        set.Scope,
		RefreshToken: set.RefreshToken,
		IDToken:      set.IDToken,
	}, nil
}

func (s *tokenService) count(grant, outcome string) {
	metrics.GrantOutcomes.WithLabelValues(grant, outcome).Inc()
}
