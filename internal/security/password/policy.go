package password

import (
	"strings"
	"unicode"
)

// Policy valida la complejidad de passwords nuevas (seed de usuarios, CLI).
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy es la que aplica el CLI si no se configura otra.
var DefaultPolicy = Policy{MinLength: 10, RequireUpper: true, RequireLower: true, RequireDigit: true}

// PolicyError lista los motivos por los que una password no cumple la política.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password: policy violation: " + strings.Join(e.Reasons, ",")
}

// Validate retorna *PolicyError si s no cumple.
func (p Policy) Validate(s string) error {
	var reasons []string
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return nil
}
