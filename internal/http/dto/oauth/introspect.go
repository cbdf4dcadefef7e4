package oauth

// IntrospectRequest es el form de POST /connect/introspect (RFC 7662).
type IntrospectRequest struct {
	Token         string
	TokenTypeHint string
	Client        ClientCredentials
}

// IntrospectResponse: si Active es false el resto va vacío.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	TokenType string `json:"token_type,omitempty"`
	Sub       string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
}

// RevokeRequest es el form de POST /connect/revoke (RFC 7009).
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
	Client        ClientCredentials
}
