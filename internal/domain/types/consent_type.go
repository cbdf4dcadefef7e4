// Package types define tipos de dominio compartidos entre paquetes.
package types

import (
	"fmt"
	"strings"
)

// ConsentType governs whether and when end-user approval is required before
// tokens are issued to a client application.
type ConsentType int

const (
	// ConsentImplicit never prompts: approval is assumed.
	ConsentImplicit ConsentType = iota + 1
	// ConsentExplicit prompts unless a matching permanent authorization exists.
	ConsentExplicit
	// ConsentExternal never prompts: approval must be granted out of band
	// (typically by an administrator) before the client is usable.
	ConsentExternal
	// ConsentSystematic prompts on every request.
	ConsentSystematic
)

var consentTypeNames = map[ConsentType]string{
	ConsentImplicit:   "implicit",
	ConsentExplicit:   "explicit",
	ConsentExternal:   "external",
	ConsentSystematic: "systematic",
}

// String returns the wire name ("implicit", "explicit", ...).
func (c ConsentType) String() string {
	if s, ok := consentTypeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ConsentType(%d)", int(c))
}

// IsValid retorna true si el consent type es uno de los cuatro conocidos.
func (c ConsentType) IsValid() bool {
	_, ok := consentTypeNames[c]
	return ok
}

// ParseConsentType convierte el nombre persistido en un ConsentType.
func ParseConsentType(s string) (ConsentType, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for k, v := range consentTypeNames {
		if v == needle {
			return k, nil
		}
	}
	return 0, fmt.Errorf("types: unknown consent type %q", s)
}

// MarshalText implementa encoding.TextMarshaler (yaml/json).
func (c ConsentType) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("types: invalid consent type %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implementa encoding.TextUnmarshaler (yaml/json).
func (c *ConsentType) UnmarshalText(b []byte) error {
	v, err := ParseConsentType(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
