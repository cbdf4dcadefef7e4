package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// DefaultPostLogoutURI es el destino cuando el cliente no registró uno válido.
const DefaultPostLogoutURI = "/"

// LogoutService termina la sesión local. No revoca tokens.
type LogoutService interface {
	Logout(ctx context.Context, sessionID string, req dto.LogoutRequest) (*dto.LogoutResult, error)
	BuildDeletionCookie() *http.Cookie
}

// LogoutDeps contiene las dependencias del logout.
type LogoutDeps struct {
	Store        Store
	Applications repository.ApplicationRepository
	Issuer       *jwtx.Issuer
	Cookie       dto.CookieConfig
}

type logoutService struct {
	deps LogoutDeps
}

// NewLogoutService crea el Session Terminator.
func NewLogoutService(d LogoutDeps) LogoutService {
	return &logoutService{deps: d}
}

func (s *logoutService) Logout(ctx context.Context, sessionID string, req dto.LogoutRequest) (*dto.LogoutResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("session.logout"), logger.Op("Logout"))

	var subject string
	if p, err := s.deps.Store.Resolve(ctx, sessionID); err == nil {
		subject = p.Subject
	}
	// best-effort: el logout nunca falla por el cache
	if err := s.deps.Store.Delete(ctx, sessionID); err != nil {
		log.Debug("failed to delete session from cache", logger.Err(err))
	}
	audit.Log(ctx, audit.EventLogout, logger.Subject(subject), logger.ClientID(req.ClientID))

	if !req.HasProtocolContext() {
		return &dto.LogoutResult{}, nil
	}

	target := DefaultPostLogoutURI
	if app := s.resolveClient(ctx, req); app != nil &&
		app.HasPermission(types.PermissionPrefixEndpoint+types.PermissionEndpointLogout) &&
		app.HasPostLogoutRedirectURI(req.PostLogoutRedirectURI) {
		target = req.PostLogoutRedirectURI
		if req.State != "" {
			target = appendQuery(target, "state", req.State)
		}
	}
	log.Debug("post logout redirect", logger.String("location", target))
	return &dto.LogoutResult{Redirect: true, Location: target}, nil
}

// resolveClient identifica el cliente por client_id o, si falta, por la
// audiencia del id_token_hint.
func (s *logoutService) resolveClient(ctx context.Context, req dto.LogoutRequest) *repository.Application {
	clientID := req.ClientID
	if clientID == "" && req.IDTokenHint != "" && s.deps.Issuer != nil {
		hint, err := s.deps.Issuer.ParseIDTokenHint(req.IDTokenHint)
		if err != nil {
			logger.From(ctx).Debug("ignoring invalid id_token_hint", logger.Err(err))
			return nil
		}
		if len(hint.Audience) > 0 {
			clientID = hint.Audience[0]
		}
	}
	if clientID == "" {
		return nil
	}
	app, err := s.deps.Applications.GetByClientID(ctx, clientID)
	if err != nil {
		return nil
	}
	return app
}

func (s *logoutService) BuildDeletionCookie() *http.Cookie {
	c := s.deps.Cookie
	name := c.Name
	if name == "" {
		name = "sid"
	}
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: ParseSameSite(c.SameSite),
	}
}

// ParseSameSite mapea el valor de config; default Lax.
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func appendQuery(target, k, v string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(k, v)
	u.RawQuery = q.Encode()
	return u.String()
}
