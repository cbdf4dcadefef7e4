package oauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// IntrospectService implementa POST /connect/introspect (RFC 7662).
type IntrospectService interface {
	// Introspect nunca distingue "no existe" de "revocado": ambos son {active:false}.
	Introspect(ctx context.Context, req dto.IntrospectRequest) (*dto.IntrospectResponse, error)
}

type introspectService struct {
	clients ClientAuthenticator
	apps    repository.ApplicationRepository
	tokens  repository.TokenRepository
	issuer  *jwtx.Issuer
	now     func() time.Time
}

// NewIntrospectService crea el service de introspección.
func NewIntrospectService(d Deps, clients ClientAuthenticator) IntrospectService {
	now := d.Options.Now
	if now == nil {
		now = time.Now
	}
	return &introspectService{clients: clients, apps: d.Applications, tokens: d.Tokens, issuer: d.Issuer, now: now}
}

func (s *introspectService) Introspect(ctx context.Context, req dto.IntrospectRequest) (*dto.IntrospectResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("IntrospectService.Introspect"), logger.ClientID(req.Client.ClientID))

	if req.Token == "" {
		return nil, oauth.InvalidRequest("The mandatory 'token' parameter is missing.")
	}
	caller, err := s.clients.Authenticate(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	if !caller.IsConfidential() {
		return nil, oauth.InvalidClient("Public clients are not allowed to use the introspection endpoint.")
	}
	if !caller.HasPermission(types.PermissionPrefixEndpoint + types.PermissionEndpointIntrospection) {
		return nil, oauth.UnauthorizedClient("This client application is not allowed to use the introspection endpoint.")
	}

	tok, err := findToken(ctx, s.tokens, s.issuer, req.Token)
	if err != nil {
		return nil, fmt.Errorf("introspect: lookup token: %w", err)
	}
	// los códigos nunca se exponen por introspección
	if tok == nil || tok.Type == types.TokenTypeAuthorizationCode || !tok.IsActive(s.now()) {
		metrics.Introspections.WithLabelValues("false").Inc()
		log.Debug("token inactive")
		return &dto.IntrospectResponse{Active: false}, nil
	}

	resp := &dto.IntrospectResponse{
		Active:    true,
		TokenType: string(tok.Type),
		Sub:       tok.Subject,
		Scope:     strings.Join(tok.Scopes, " "),
		Iat:       tok.CreatedAt.Unix(),
	}
	if tok.ExpiresAt != nil {
		resp.Exp = tok.ExpiresAt.Unix()
	}
	if app, err := s.apps.GetByID(ctx, tok.ApplicationID); err == nil {
		resp.ClientID = app.ClientID
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("introspect: lookup token application: %w", err)
	}
	metrics.Introspections.WithLabelValues("true").Inc()
	log.Debug("token active", logger.TokenID(tok.ID))
	return resp, nil
}
