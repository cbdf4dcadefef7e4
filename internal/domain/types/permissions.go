package types

// Prefijos de permisos otorgados a una aplicación cliente.
const (
	PermissionPrefixEndpoint  = "ept:"
	PermissionPrefixGrantType = "gt:"
	PermissionPrefixScope     = "scp:"
)

// Endpoints; el permiso persistido es PermissionPrefixEndpoint + nombre.
const (
	PermissionEndpointAuthorization = "authorization"
	PermissionEndpointToken         = "token"
	PermissionEndpointIntrospection = "introspection"
	PermissionEndpointRevocation    = "revocation"
	PermissionEndpointLogout        = "logout"
)

// Grant types soportados.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"
)

// Scopes estándar de OIDC.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeRoles         = "roles"
	ScopeOfflineAccess = "offline_access"
)
