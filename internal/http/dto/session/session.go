// Package session contiene los DTOs de login y logout.
package session

import "time"

// LoginRequest es el body de POST /connect/login (form o JSON).
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	ReturnTo string `json:"return_to,omitempty"`
}

// LoginResult contiene el session id en claro (sólo para la cookie).
type LoginResult struct {
	SessionID string
	Subject   string
	ExpiresAt time.Time
	ReturnTo  string
}

// SessionPayload se guarda en cache bajo "sid:<sha256(cookie)>".
type SessionPayload struct {
	Subject  string    `json:"sub"`
	AuthTime time.Time `json:"auth_time"`
	Expires  time.Time `json:"expires"`
}

// LogoutRequest son los parámetros de RP-Initiated Logout.
type LogoutRequest struct {
	ClientID              string
	PostLogoutRedirectURI string
	IDTokenHint           string
	State                 string
}

// HasProtocolContext reporta si el request trae contexto de end-session.
func (r LogoutRequest) HasProtocolContext() bool {
	return r.ClientID != "" || r.PostLogoutRedirectURI != "" || r.IDTokenHint != "" || r.State != ""
}

// LogoutResult: Redirect=false significa confirmación simple.
type LogoutResult struct {
	Redirect bool
	Location string
}

// CookieConfig configura la cookie de sesión.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string // Lax | Strict | None
	Secure   bool
	TTL      time.Duration
}
