package oauth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// parseForm exige POST con form urlencoded.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
			return false
		}
		httperrors.WriteOAuthError(w, oauth.InvalidRequest("The request body is malformed."))
		return false
	}
	return true
}

// clientCredentials lee Basic (RFC 6749 §2.3.1, valores form-encoded) o el
// form. Usar ambos métodos a la vez es invalid_request.
func clientCredentials(r *http.Request) (dto.ClientCredentials, *oauth.Error) {
	form := dto.ClientCredentials{
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: r.PostForm.Get("client_secret"),
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return form, nil
	}
	if form.ClientSecret != "" {
		return dto.ClientCredentials{}, oauth.InvalidRequest("Multiple client credentials cannot be specified.")
	}
	id, err1 := url.QueryUnescape(user)
	secret, err2 := url.QueryUnescape(pass)
	if err1 != nil || err2 != nil {
		return dto.ClientCredentials{}, oauth.InvalidClient("The client credentials are malformed.")
	}
	if form.ClientID != "" && form.ClientID != id {
		return dto.ClientCredentials{}, oauth.InvalidRequest("The 'client_id' parameter doesn't match the authenticated client.")
	}
	return dto.ClientCredentials{ClientID: id, ClientSecret: secret}, nil
}

// writeServiceError: *oauth.Error con su status; cualquier otro error es 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if oe, ok := oauth.As(err); ok {
		httperrors.WriteOAuthError(w, oe)
		return
	}
	logger.From(r.Context()).Error("request failed", logger.Layer("controller"), logger.Op(op), logger.Err(err))
	httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
}

// writeMalformedCall es writeServiceError para introspect y revoke: todo
// error de protocolo, invalid_client incluido, sale como 400.
func writeMalformedCall(w http.ResponseWriter, r *http.Request, op string, err error) {
	if oe, ok := oauth.As(err); ok && oe.Code != oauth.CodeServerError {
		httperrors.WriteOAuthErrorStatus(w, oe, http.StatusBadRequest)
		return
	}
	writeServiceError(w, r, op, err)
}

// addQueryParam agrega un parámetro a una URL que puede traer query.
func addQueryParam(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
