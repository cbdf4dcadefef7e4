// Package session contiene los controllers de login y logout por cookie.
package session

import (
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
)

// Controllers agrupa los controllers de sesión.
type Controllers struct {
	Login  *LoginController
	Logout *LogoutController
}

// NewControllers crea el agregador de controllers de sesión.
func NewControllers(s svc.Services, cookie dto.CookieConfig) *Controllers {
	return &Controllers{
		Login:  NewLoginController(s.Login, cookie),
		Logout: NewLogoutController(s.Logout, cookie),
	}
}
