// Package validation contiene reglas de formato compartidas entre el CLI,
// los DTOs HTTP y los services.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Scope name rules:
//   - lowercase, start and end with [a-z0-9]
//   - middle chars may include [a-z0-9:_.-]
//   - length 1..64, no whitespace or semicolons
//
// Valid: profile, profile:read, api.orders:write. Invalid: BAD, bad space, :lead, trail:.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName reports whether name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ParseScopeParam splits a space-delimited scope parameter, dropping empties
// and duplicates. ok is false if any entry is malformed.
func ParseScopeParam(raw string) (scopes []string, ok bool) {
	seen := map[string]struct{}{}
	for _, s := range strings.Fields(raw) {
		if !ValidScopeName(s) {
			return nil, false
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	return scopes, true
}

// New returns a validator with the "scopename" and "scopelist" tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("scopename", func(fl validator.FieldLevel) bool {
		return ValidScopeName(fl.Field().String())
	})
	_ = v.RegisterValidation("scopelist", func(fl validator.FieldLevel) bool {
		_, ok := ParseScopeParam(fl.Field().String())
		return ok
	})
	return v
}
