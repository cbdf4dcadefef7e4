package oauth

import (
	"net/http"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
)

// IntrospectController maneja POST /connect/introspect.
type IntrospectController struct {
	service svc.IntrospectService
}

func NewIntrospectController(s svc.IntrospectService) *IntrospectController {
	return &IntrospectController{service: s}
}

func (c *IntrospectController) Introspect(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	creds, oe := clientCredentials(r)
	if oe != nil {
		writeMalformedCall(w, r, "IntrospectController.Introspect", oe)
		return
	}
	resp, err := c.service.Introspect(r.Context(), dto.IntrospectRequest{
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
		Client:        creds,
	})
	if err != nil {
		writeMalformedCall(w, r, "IntrospectController.Introspect", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, resp)
}
