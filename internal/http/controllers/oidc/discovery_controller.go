// Package oidc contiene los controllers de discovery y JWKS.
package oidc

import (
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
)

// DiscoveryController maneja /.well-known/openid-configuration
type DiscoveryController struct {
	service svc.DiscoveryService
}

func NewDiscoveryController(service svc.DiscoveryService) *DiscoveryController {
	return &DiscoveryController{service: service}
}

// Get maneja GET/HEAD /.well-known/openid-configuration
func (c *DiscoveryController) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
	w.Header().Set("Expires", time.Now().Add(10*time.Minute).UTC().Format(http.TimeFormat))
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, c.service.Metadata())
}
