package claims

import (
	"slices"
	"strings"
)

// Claim es un par tipo/valor con sus destinos ya resueltos.
type Claim struct {
	Type         string
	Value        string
	Destinations Destination
}

// ScopeSet es un set de scopes otorgados.
type ScopeSet map[string]struct{}

// NewScopeSet construye un set ignorando vacíos.
func NewScopeSet(scopes ...string) ScopeSet {
	s := make(ScopeSet, len(scopes))
	for _, sc := range scopes {
		if sc = strings.TrimSpace(sc); sc != "" {
			s[sc] = struct{}{}
		}
	}
	return s
}

func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Principal es la identidad que se firma: subject, claims, scopes y resources.
// Se construye por request y nunca se persiste.
type Principal struct {
	Claims          []Claim
	Scopes          []string
	Resources       []string
	AuthorizationID string
}

// NewPrincipal crea un principal con el claim sub.
func NewPrincipal(subject string) *Principal {
	p := &Principal{}
	p.Add(TypeSubject, subject)
	return p
}

// Add agrega un claim. Los valores vacíos se ignoran.
func (p *Principal) Add(typ, value string) {
	if value == "" {
		return
	}
	p.Claims = append(p.Claims, Claim{Type: typ, Value: value})
}

// AddAll agrega un claim por valor (roles).
func (p *Principal) AddAll(typ string, values []string) {
	for _, v := range values {
		p.Add(typ, v)
	}
}

// Subject retorna el valor del claim sub.
func (p *Principal) Subject() string { return p.First(TypeSubject) }

// First retorna el primer valor del tipo, o "".
func (p *Principal) First(typ string) string {
	for _, c := range p.Claims {
		if c.Type == typ {
			return c.Value
		}
	}
	return ""
}

// Values retorna todos los valores del tipo en orden de inserción.
func (p *Principal) Values(typ string) []string {
	var out []string
	for _, c := range p.Claims {
		if c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}

// SetScopes reemplaza los scopes, deduplicando y preservando el orden.
func (p *Principal) SetScopes(scopes []string) {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	p.Scopes = out
}

func (p *Principal) HasScope(scope string) bool { return slices.Contains(p.Scopes, scope) }

// ApplyPolicy resuelve los destinos de cada claim contra los scopes actuales.
// Debe llamarse después de SetScopes.
func (p *Principal) ApplyPolicy(pol Policy) {
	set := NewScopeSet(p.Scopes...)
	for i := range p.Claims {
		p.Claims[i].Destinations = pol.Destinations(p.Claims[i], set)
	}
}

// ClaimsFor proyecta los claims con destino dest a un mapa listo para el JWT.
// role siempre es un array; otros tipos repetidos también se emiten como array.
func (p *Principal) ClaimsFor(dest Destination) map[string]any {
	out := map[string]any{}
	multi := map[string][]string{}
	for _, c := range p.Claims {
		if !c.Destinations.Has(dest) {
			continue
		}
		multi[c.Type] = append(multi[c.Type], c.Value)
	}
	for typ, vals := range multi {
		if typ == TypeRole || len(vals) > 1 {
			out[typ] = vals
			continue
		}
		out[typ] = vals[0]
	}
	return out
}
