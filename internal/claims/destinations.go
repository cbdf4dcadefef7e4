package claims

import "strings"

// Tipos de claim conocidos.
const (
	TypeSubject           = "sub"
	TypeName              = "name"
	TypePreferredUsername = "preferred_username"
	TypeEmail             = "email"
	TypeRole              = "role"
	TypeGivenName         = "given_name"
	TypeFamilyName        = "family_name"
	TypeSecurityStamp     = "security_stamp"
)

// Destination es un bitmask de canales de token.
type Destination uint8

const (
	AccessToken Destination = 1 << iota
	IdentityToken

	// None: el claim no se emite.
	None Destination = 0
)

// Has reporta si d incluye x.
func (d Destination) Has(x Destination) bool { return d&x == x && x != None }

func (d Destination) String() string {
	var parts []string
	if d.Has(AccessToken) {
		parts = append(parts, "access_token")
	}
	if d.Has(IdentityToken) {
		parts = append(parts, "id_token")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Policy decide los destinos de un claim dado el set de scopes otorgado.
type Policy interface {
	Destinations(c Claim, scopes ScopeSet) Destination
}

// PolicyFunc adapta una función a Policy.
type PolicyFunc func(c Claim, scopes ScopeSet) Destination

func (f PolicyFunc) Destinations(c Claim, scopes ScopeSet) Destination { return f(c, scopes) }

var (
	// Scoped es la política de /connect/authorize.
	Scoped Policy = PolicyFunc(scopedDestinations)
	// DirectGrant es la política de /connect/token.
	DirectGrant Policy = PolicyFunc(directGrantDestinations)
)

func scopedDestinations(c Claim, scopes ScopeSet) Destination {
	switch c.Type {
	case TypeName, TypePreferredUsername:
		return withIdentityIf(scopes.Has("profile"))
	case TypeEmail:
		return withIdentityIf(scopes.Has("email"))
	case TypeRole:
		return withIdentityIf(scopes.Has("roles"))
	case TypeSecurityStamp:
		return None
	default:
		return AccessToken
	}
}

func directGrantDestinations(c Claim, _ ScopeSet) Destination {
	switch c.Type {
	case TypeSecurityStamp:
		return None
	case TypeName, TypeEmail, TypeSubject, TypeGivenName, TypeFamilyName:
		return AccessToken | IdentityToken
	default:
		return AccessToken
	}
}

func withIdentityIf(ok bool) Destination {
	if ok {
		return AccessToken | IdentityToken
	}
	return AccessToken
}
