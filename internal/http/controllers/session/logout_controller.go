package session

import (
	"net/http"
	"net/url"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// LogoutController maneja GET/POST /connect/logout.
type LogoutController struct {
	service svc.LogoutService
	cookie  dto.CookieConfig
}

// NewLogoutController crea el controller de logout.
func NewLogoutController(s svc.LogoutService, cookie dto.CookieConfig) *LogoutController {
	if cookie.Name == "" {
		cookie.Name = "sid"
	}
	return &LogoutController{service: s, cookie: cookie}
}

func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LogoutController.Logout"))

	var params url.Values
	switch r.Method {
	case http.MethodGet:
		params = r.URL.Query()
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("malformed form body"))
			return
		}
		params = r.Form
	default:
		w.Header().Set("Allow", "GET, POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	sid := mw.GetSessionID(ctx)
	if sid == "" {
		if ck, err := r.Cookie(c.cookie.Name); err == nil {
			sid = ck.Value
		}
	}

	res, err := c.service.Logout(ctx, sid, dto.LogoutRequest{
		ClientID:              params.Get("client_id"),
		PostLogoutRedirectURI: params.Get("post_logout_redirect_uri"),
		IDTokenHint:           params.Get("id_token_hint"),
		State:                 params.Get("state"),
	})
	if err != nil {
		log.Error("logout failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	http.SetCookie(w, c.service.BuildDeletionCookie())
	w.Header().Set("Cache-Control", "no-store")

	if res.Redirect {
		http.Redirect(w, r, res.Location, http.StatusFound)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
