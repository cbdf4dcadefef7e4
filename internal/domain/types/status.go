package types

// Status es el estado persistido de authorizations y tokens.
// Transiciones permitidas: valid → revoked, valid → redeemed.
// revoked y redeemed son terminales.
type Status string

const (
	StatusValid    Status = "valid"
	StatusRevoked  Status = "revoked"
	StatusRedeemed Status = "redeemed"
)

// AuthorizationType distingue autorizaciones otorgadas por el usuario
// (permanent) de las creadas automáticamente para encadenar tokens (ad-hoc).
type AuthorizationType string

const (
	AuthorizationPermanent AuthorizationType = "permanent"
	AuthorizationAdHoc     AuthorizationType = "ad-hoc"
)

// TokenType identifica el canal/uso de un token persistido.
type TokenType string

const (
	TokenTypeAccess            TokenType = "access_token"
	TokenTypeRefresh           TokenType = "refresh_token"
	TokenTypeIdentity          TokenType = "id_token"
	TokenTypeAuthorizationCode TokenType = "authorization_code"
)
