package oidc

import (
	"net/http"

	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
)

// JWKSController maneja /.well-known/jwks.json
type JWKSController struct {
	service svc.JWKSService
}

func NewJWKSController(service svc.JWKSService) *JWKSController {
	return &JWKSController{service: service}
}

// Get maneja GET/HEAD /.well-known/jwks.json
func (c *JWKSController) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	// rotación: no cachear más que unos minutos
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(c.service.JWKS())
}
