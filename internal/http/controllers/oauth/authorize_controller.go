package oauth

import (
	"net/http"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// AuthorizeController maneja /connect/authorize y sus callbacks accept/deny.
type AuthorizeController struct {
	service svc.AuthorizeService
}

// NewAuthorizeController crea el controller.
func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize maneja GET/POST /connect/authorize.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"))

	var req dto.AuthorizeRequest
	switch r.Method {
	case http.MethodGet:
		req = dto.AuthorizeRequestFromValues(r.URL.Query())
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("malformed form body"))
			return
		}
		req = dto.AuthorizeRequestFromValues(r.PostForm)
	default:
		w.Header().Set("Allow", "GET, POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}
	w.Header().Add("Vary", "Cookie")

	log.Debug("authorize request", logger.ClientID(req.ClientID), logger.String("scope", req.Scope))
	res, err := c.service.Authorize(ctx, req, mw.GetSubject(ctx))
	c.respond(w, r, "AuthorizeController.Authorize", res, err)
}

// Accept maneja POST /connect/authorize/accept (requiere sesión).
func (c *AuthorizeController) Accept(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ctx := r.Context()
	res, err := c.service.Accept(ctx, dto.AuthorizeRequestFromValues(r.PostForm), mw.GetSubject(ctx))
	c.respond(w, r, "AuthorizeController.Accept", res, err)
}

// Deny maneja POST /connect/authorize/deny (requiere sesión).
func (c *AuthorizeController) Deny(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ctx := r.Context()
	res, err := c.service.Deny(ctx, dto.AuthorizeRequestFromValues(r.PostForm), mw.GetSubject(ctx))
	c.respond(w, r, "AuthorizeController.Deny", res, err)
}

func (c *AuthorizeController) respond(w http.ResponseWriter, r *http.Request, op string, res dto.AuthResult, err error) {
	if err != nil {
		// antes de validar redirect_uri: nunca se redirige
		writeServiceError(w, r, op, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	switch res.Type {
	case dto.AuthResultSuccess:
		loc := addQueryParam(res.RedirectURI, "code", res.Code)
		if res.State != "" {
			loc = addQueryParam(loc, "state", res.State)
		}
		http.Redirect(w, r, loc, http.StatusFound)

	case dto.AuthResultNeedLogin:
		http.Redirect(w, r, res.LoginURL, http.StatusFound)

	case dto.AuthResultConsent:
		httperrors.WriteJSON(w, http.StatusOK, res.Consent)

	case dto.AuthResultError:
		loc := addQueryParam(res.RedirectURI, "error", res.ErrorCode)
		if res.ErrorDescription != "" {
			loc = addQueryParam(loc, "error_description", res.ErrorDescription)
		}
		if res.State != "" {
			loc = addQueryParam(loc, "state", res.State)
		}
		http.Redirect(w, r, loc, http.StatusFound)
	}
}
