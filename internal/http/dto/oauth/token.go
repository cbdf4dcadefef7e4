package oauth

// ClientCredentials son las credenciales del cliente (Basic o form).
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// TokenRequest es el form de POST /connect/token.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Username     string
	Password     string
	Scope        string
	Client       ClientCredentials
}

// TokenResponse es la respuesta exitosa de /connect/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}
