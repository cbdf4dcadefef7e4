// Package errors escribe las respuestas de error HTTP: AppError para la
// superficie propia (login, health) y el formato RFC 6749 para los endpoints OAuth.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe un AppError (o un 500 genérico para cualquier otro error).
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// WriteOAuthError escribe {error, error_description} con el status del código.
// invalid_client agrega WWW-Authenticate (RFC 6749 §5.2).
func WriteOAuthError(w http.ResponseWriter, e *oauth.Error) {
	WriteOAuthErrorStatus(w, e, e.HTTPStatus())
}

// WriteOAuthErrorStatus es WriteOAuthError con un status fijo.
func WriteOAuthErrorStatus(w http.ResponseWriter, e *oauth.Error, status int) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	if status == http.StatusUnauthorized {
		h.Set("WWW-Authenticate", `Basic realm="oauth"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}

// WriteJSON escribe v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
