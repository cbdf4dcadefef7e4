// Package util contiene helpers chicos sin dependencias de dominio.
package util

import "strings"

// MaskLogin enmascara un email o username para logs: "alice@example.com" →
// "a…@e….com", "alice" → "a…e". Strings de hasta 3 runas quedan en "***".
func MaskLogin(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		r := []rune(s)
		if len(r) <= 3 {
			return "***"
		}
		return string(r[:1]) + "…" + string(r[len(r)-1:])
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	dparts := strings.Split(dom, ".")
	if len(dparts[0]) > 1 {
		dparts[0] = dparts[0][:1] + "…"
	}
	return user + "@" + strings.Join(dparts, ".")
}
