// Package oauth define los errores de protocolo OAuth2/OIDC (RFC 6749 §5.2,
// OIDC Core §3.1.2.6) como valores.
package oauth

import (
	"errors"
	"net/http"
)

// Códigos de error estándar.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidClient        = "invalid_client"
	CodeInvalidGrant         = "invalid_grant"
	CodeUnauthorizedClient   = "unauthorized_client"
	CodeUnsupportedGrantType = "unsupported_grant_type"
	CodeUnsupportedRespType  = "unsupported_response_type"
	CodeInvalidScope         = "invalid_scope"
	CodeAccessDenied         = "access_denied"
	CodeLoginRequired        = "login_required"
	CodeConsentRequired      = "consent_required"
	CodeServerError          = "server_error"
)

// Error es un error de protocolo. Nunca se reintenta.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// HTTPStatus mapea el código al status del endpoint de token/introspect.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidClient:
		return http.StatusUnauthorized
	case CodeAccessDenied, CodeLoginRequired, CodeConsentRequired:
		return http.StatusForbidden
	case CodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// As extrae un *Error de la cadena de err.
func As(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func newErr(code, desc string) *Error { return &Error{Code: code, Description: desc} }

func InvalidRequest(desc string) *Error     { return newErr(CodeInvalidRequest, desc) }
func InvalidClient(desc string) *Error      { return newErr(CodeInvalidClient, desc) }
func InvalidGrant(desc string) *Error       { return newErr(CodeInvalidGrant, desc) }
func UnauthorizedClient(desc string) *Error { return newErr(CodeUnauthorizedClient, desc) }
func InvalidScope(desc string) *Error       { return newErr(CodeInvalidScope, desc) }
func LoginRequired(desc string) *Error      { return newErr(CodeLoginRequired, desc) }
func ConsentRequired(desc string) *Error    { return newErr(CodeConsentRequired, desc) }
func ServerError(desc string) *Error        { return newErr(CodeServerError, desc) }

func UnsupportedGrantType(desc string) *Error {
	return newErr(CodeUnsupportedGrantType, desc)
}

func UnsupportedResponseType(desc string) *Error {
	return newErr(CodeUnsupportedRespType, desc)
}

// AccessDenied no lleva detalle adicional.
func AccessDenied() *Error {
	return newErr(CodeAccessDenied, "The authorization was denied by the user.")
}
