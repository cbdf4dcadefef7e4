package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
)

// TokenController maneja POST /connect/token.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	creds, oe := clientCredentials(r)
	if oe != nil {
		httperrors.WriteOAuthError(w, oe)
		return
	}
	f := r.PostForm
	req := dto.TokenRequest{
		GrantType:    strings.TrimSpace(f.Get("grant_type")),
		Code:         f.Get("code"),
		RedirectURI:  f.Get("redirect_uri"),
		CodeVerifier: f.Get("code_verifier"),
		RefreshToken: f.Get("refresh_token"),
		Username:     f.Get("username"),
		Password:     f.Get("password"),
		Scope:        f.Get("scope"),
		Client:       creds,
	}

	resp, err := c.service.Exchange(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "TokenController.Token", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httperrors.WriteJSON(w, http.StatusOK, resp)
}
