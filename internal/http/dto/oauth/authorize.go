// Package oauth contiene los DTOs de los endpoints /connect/*.
package oauth

import (
	"net/url"
	"strings"
)

// AuthorizeRequest son los parámetros de /connect/authorize (query o form).
// Accept y Deny reciben el mismo set reenviado por la UI de consentimiento.
type AuthorizeRequest struct {
	ResponseType        string `json:"response_type"`
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	Scope               string `json:"scope"`
	State               string `json:"state,omitempty"`
	Nonce               string `json:"nonce,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	Prompt              string `json:"prompt,omitempty"` // set separado por espacios
}

// AuthorizeRequestFromValues lee los parámetros desde query o form.
func AuthorizeRequestFromValues(v url.Values) AuthorizeRequest {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	return AuthorizeRequest{
		ResponseType:        get("response_type"),
		ClientID:            get("client_id"),
		RedirectURI:         get("redirect_uri"),
		Scope:               get("scope"),
		State:               get("state"),
		Nonce:               get("nonce"),
		CodeChallenge:       get("code_challenge"),
		CodeChallengeMethod: get("code_challenge_method"),
		Prompt:              get("prompt"),
	}
}

// Values serializa el request omitiendo vacíos (para return_to y la UI de consent).
func (r AuthorizeRequest) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("response_type", r.ResponseType)
	set("client_id", r.ClientID)
	set("redirect_uri", r.RedirectURI)
	set("scope", r.Scope)
	set("state", r.State)
	set("nonce", r.Nonce)
	set("code_challenge", r.CodeChallenge)
	set("code_challenge_method", r.CodeChallengeMethod)
	set("prompt", r.Prompt)
	return v
}

// AuthResultType es el resultado de una llamada al motor de autorización.
type AuthResultType int

const (
	// AuthResultSuccess: redirect al cliente con code y state.
	AuthResultSuccess AuthResultType = iota
	// AuthResultNeedLogin: redirect al login con return_to.
	AuthResultNeedLogin
	// AuthResultConsent: la UI debe mostrar el prompt de consentimiento.
	AuthResultConsent
	// AuthResultError: redirect al cliente con error y state.
	AuthResultError
)

// AuthResult es lo que devuelve AuthorizeService.
type AuthResult struct {
	Type AuthResultType

	// Success
	Code string

	// NeedLogin
	LoginURL string

	// Consent
	Consent *ConsentPrompt

	// Error
	ErrorCode        string
	ErrorDescription string

	// Common
	RedirectURI string
	State       string
}

// ConsentPrompt es el cuerpo JSON devuelto cuando se requiere consentimiento.
type ConsentPrompt struct {
	Status      string           `json:"status"` // "consent_required"
	Application string           `json:"application"`
	ClientID    string           `json:"client_id"`
	Scopes      []string         `json:"scopes"`
	AcceptURL   string           `json:"accept_url"`
	DenyURL     string           `json:"deny_url"`
	Request     AuthorizeRequest `json:"request"`
}
