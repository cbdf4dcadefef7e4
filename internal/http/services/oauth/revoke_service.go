package oauth

import (
	"context"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// RevokeService implementa POST /connect/revoke (RFC 7009).
type RevokeService interface {
	// Revoke sólo falla por request malformado o cliente inválido. Token
	// inexistente y fallas internas de la cascada responden éxito.
	Revoke(ctx context.Context, req dto.RevokeRequest) error
}

type revokeService struct {
	clients ClientAuthenticator
	tokens  repository.TokenRepository
	issuer  *jwtx.Issuer
}

// NewRevokeService crea el service de revocación.
func NewRevokeService(d Deps, clients ClientAuthenticator) RevokeService {
	return &revokeService{clients: clients, tokens: d.Tokens, issuer: d.Issuer}
}

func (s *revokeService) Revoke(ctx context.Context, req dto.RevokeRequest) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("RevokeService.Revoke"), logger.ClientID(req.Client.ClientID))

	if req.Token == "" {
		return oauth.InvalidRequest("The mandatory 'token' parameter is missing.")
	}

	// autenticación de cliente opcional: si se presenta debe ser válida
	var caller *repository.Application
	if req.Client.ClientID != "" {
		app, err := s.clients.Authenticate(ctx, req.Client)
		if err != nil {
			return err
		}
		if !app.HasPermission(types.PermissionPrefixEndpoint + types.PermissionEndpointRevocation) {
			return oauth.UnauthorizedClient("This client application is not allowed to use the revocation endpoint.")
		}
		caller = app
	}

	tok, err := findToken(ctx, s.tokens, s.issuer, req.Token)
	if err != nil {
		log.Warn("revoke: lookup failed", logger.Err(err))
		return nil
	}
	if tok == nil {
		log.Debug("revoke: token not found")
		return nil
	}
	if caller != nil && tok.ApplicationID != caller.ID {
		log.Debug("revoke: token belongs to another client", logger.TokenID(tok.ID))
		return nil
	}

	if err := s.tokens.UpdateStatus(ctx, tok.ID, types.StatusRevoked); err != nil {
		log.Warn("revoke: update status failed", logger.TokenID(tok.ID), logger.Err(err))
	} else {
		metrics.TokensRevoked.WithLabelValues("direct").Inc()
	}

	cascaded := s.cascade(ctx, tok)
	audit.Log(ctx, audit.EventTokenRevoked, logger.TokenID(tok.ID), logger.AuthorizationID(tok.AuthorizationID),
		logger.Subject(tok.Subject), logger.Count(cascaded))
	return nil
}

// cascade revoca el resto de tokens de la misma authorization. Secuencial;
// los errores se loguean y se siguen.
func (s *revokeService) cascade(ctx context.Context, tok *repository.Token) int {
	if tok.AuthorizationID == "" {
		return 0
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("RevokeService.cascade"), logger.AuthorizationID(tok.AuthorizationID))

	linked, err := s.tokens.ListByAuthorizationID(ctx, tok.AuthorizationID)
	if err != nil {
		log.Warn("cascade: list failed", logger.Err(err))
		return 0
	}
	n := 0
	for _, t := range linked {
		if t.ID == tok.ID || t.Status == types.StatusRevoked {
			continue
		}
		if err := s.tokens.UpdateStatus(ctx, t.ID, types.StatusRevoked); err != nil {
			log.Warn("cascade: revoke failed", logger.TokenID(t.ID), logger.Err(err))
			continue
		}
		n++
	}
	metrics.TokensRevoked.WithLabelValues("cascade").Add(float64(n))
	return n
}
