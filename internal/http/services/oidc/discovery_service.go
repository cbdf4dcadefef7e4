// Package oidc contiene discovery y JWKS.
package oidc

import (
	"strings"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oidc"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
)

// DiscoveryService arma el documento de discovery.
type DiscoveryService interface {
	Metadata() dto.DiscoveryMetadata
}

// JWKSService expone las claves públicas de firma.
type JWKSService interface {
	JWKS() []byte
}

// Deps contiene las dependencias de discovery.
type Deps struct {
	Issuer     string
	Keys       *jwtx.KeySet
	GrantTypes []string
	Scopes     []string
}

type discoveryService struct {
	meta dto.DiscoveryMetadata
}

// NewDiscoveryService crea el service. El documento es estático por proceso.
func NewDiscoveryService(d Deps) DiscoveryService {
	base := strings.TrimRight(d.Issuer, "/")
	scopes := append([]string{"openid", "profile", "email", "roles", "offline_access"}, d.Scopes...)
	return &discoveryService{meta: dto.DiscoveryMetadata{
		Issuer:                            base,
		AuthorizationEndpoint:             base + "/connect/authorize",
		TokenEndpoint:                     base + "/connect/token",
		IntrospectionEndpoint:             base + "/connect/introspect",
		RevocationEndpoint:                base + "/connect/revoke",
		EndSessionEndpoint:                base + "/connect/logout",
		JWKSURI:                           base + "/.well-known/jwks.json",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               d.GrantTypes,
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"EdDSA"},
		ScopesSupported:                   dedupe(scopes),
		ClaimsSupported:                   []string{"sub", "name", "preferred_username", "email", "given_name", "family_name", "role"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		CodeChallengeMethodsSupported:     []string{"S256", "plain"},
		PromptValuesSupported:             []string{"none", "login", "consent"},
	}}
}

func (s *discoveryService) Metadata() dto.DiscoveryMetadata { return s.meta }

type jwksService struct {
	keys *jwtx.KeySet
}

// NewJWKSService crea el service de JWKS.
func NewJWKSService(keys *jwtx.KeySet) JWKSService {
	return &jwksService{keys: keys}
}

func (s *jwksService) JWKS() []byte { return s.keys.JWKSJSON() }

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
