package oauth

import (
	"net/http"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
)

// RevokeController maneja POST /connect/revoke. Responde 200 vacío salvo
// request malformado.
type RevokeController struct {
	service svc.RevokeService
}

func NewRevokeController(s svc.RevokeService) *RevokeController {
	return &RevokeController{service: s}
}

func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	creds, oe := clientCredentials(r)
	if oe != nil {
		writeMalformedCall(w, r, "RevokeController.Revoke", oe)
		return
	}
	err := c.service.Revoke(r.Context(), dto.RevokeRequest{
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
		Client:        creds,
	})
	if err != nil {
		writeMalformedCall(w, r, "RevokeController.Revoke", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}
