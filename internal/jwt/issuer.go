// Package jwt es el subsistema de emisión: firma access/id tokens (EdDSA),
// genera refresh tokens y códigos opacos, y los persiste en el token store.
// Recibe un claims.Principal ya proyectado y no toma decisiones de protocolo.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

// Propiedades guardadas en el row del authorization code.
const (
	PropRedirectURI         = "redirect_uri"
	PropCodeChallenge       = "code_challenge"
	PropCodeChallengeMethod = "code_challenge_method"
	PropNonce               = "nonce"
	PropResources           = "resources"
)

// reservedClaims no pueden venir del principal.
var reservedClaims = map[string]struct{}{
	"iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {}, "scope": {}, "client_id": {}, "nonce": {},
}

// Issuer firma tokens con la clave activa y los registra en el store.
type Issuer struct {
	Iss            string
	Keys           *KeySet
	AccessTTL      time.Duration
	IDTokenTTL     time.Duration
	RefreshTTL     time.Duration
	CodeTTL        time.Duration
	Tokens         repository.TokenRepository
	Authorizations repository.AuthorizationRepository
	Now            func() time.Time
}

// NewIssuer crea un Issuer con TTLs por defecto (access/id 15m, refresh 30d, code 5m).
func NewIssuer(iss string, keys *KeySet, toks repository.TokenRepository, authz repository.AuthorizationRepository) *Issuer {
	return &Issuer{
		Iss:            iss,
		Keys:           keys,
		AccessTTL:      15 * time.Minute,
		IDTokenTTL:     15 * time.Minute,
		RefreshTTL:     30 * 24 * time.Hour,
		CodeTTL:        5 * time.Minute,
		Tokens:         toks,
		Authorizations: authz,
		Now:            time.Now,
	}
}

// TokenSet es lo que devuelve el token endpoint.
type TokenSet struct {
	AccessToken   string
	AccessTokenID string
	TokenType     string
	ExpiresIn     int64
	Scope         string
	RefreshToken  string
	IDToken       string
}

// IssueOptions parámetros del request que afectan al id_token.
type IssueOptions struct {
	Nonce string
}

// Sign firma claims arbitrarios con headers kid/typ.
func (i *Issuer) Sign(c jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, c)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.Keys.Priv)
}

// IssueTokens emite el access token, el id_token si se otorgó openid y un
// refresh token si se otorgó offline_access y el cliente tiene gt:refresh_token.
// Si hay refresh y el principal no está ligado a una authorization, crea una ad-hoc.
func (i *Issuer) IssueTokens(ctx context.Context, app *repository.Application, p *claims.Principal, opts IssueOptions) (*TokenSet, error) {
	log := logger.From(ctx).With(logger.Layer("issuer"), logger.Op("Issuer.IssueTokens"), logger.ClientID(app.ClientID))
	sub := p.Subject()
	if sub == "" {
		return nil, errors.New("jwt: principal without subject")
	}
	now := i.Now().UTC()

	wantRefresh := p.HasScope(types.ScopeOfflineAccess) &&
		app.HasPermission(types.PermissionPrefixGrantType+types.GrantTypeRefreshToken)

	if wantRefresh && p.AuthorizationID == "" {
		adhoc := &repository.Authorization{
			Subject:       sub,
			ApplicationID: app.ID,
			Type:          types.AuthorizationAdHoc,
			Status:        types.StatusValid,
			Scopes:        p.Scopes,
			CreatedAt:     now,
		}
		if err := i.Authorizations.Create(ctx, adhoc); err != nil {
			return nil, fmt.Errorf("jwt: create ad-hoc authorization: %w", err)
		}
		p.AuthorizationID = adhoc.ID
		log.Debug("ad-hoc authorization created", logger.AuthorizationID(adhoc.ID))
	}

	set := &TokenSet{TokenType: "Bearer", Scope: strings.Join(p.Scopes, " ")}

	// ─── access token ───
	accessID, accessExp, err := i.persist(ctx, types.TokenTypeAccess, app, p, "", i.AccessTTL, now, nil)
	if err != nil {
		return nil, err
	}
	ac := jwtv5.MapClaims{}
	for k, v := range p.ClaimsFor(claims.AccessToken) {
		if _, reserved := reservedClaims[k]; !reserved {
			ac[k] = v
		}
	}
	ac["iss"] = i.Iss
	ac["sub"] = sub
	ac["aud"] = accessAudience(app, p)
	ac["iat"] = now.Unix()
	ac["nbf"] = now.Unix()
	ac["exp"] = accessExp.Unix()
	ac["jti"] = accessID
	ac["client_id"] = app.ClientID
	if set.Scope != "" {
		ac["scope"] = set.Scope
	}
	if p.AuthorizationID != "" {
		ac[claims.SystemNamespace(i.Iss)] = map[string]any{"authorization_id": p.AuthorizationID}
	}
	if set.AccessToken, err = i.Sign(ac); err != nil {
		return nil, fmt.Errorf("jwt: sign access token: %w", err)
	}
	set.AccessTokenID = accessID
	set.ExpiresIn = int64(i.AccessTTL / time.Second)

	// ─── id token ───
	if p.HasScope(types.ScopeOpenID) {
		idID, idExp, err := i.persist(ctx, types.TokenTypeIdentity, app, p, "", i.IDTokenTTL, now, nil)
		if err != nil {
			return nil, err
		}
		ic := jwtv5.MapClaims{}
		for k, v := range p.ClaimsFor(claims.IdentityToken) {
			if _, reserved := reservedClaims[k]; !reserved {
				ic[k] = v
			}
		}
		ic["iss"] = i.Iss
		ic["sub"] = sub
		ic["aud"] = app.ClientID
		ic["iat"] = now.Unix()
		ic["exp"] = idExp.Unix()
		ic["jti"] = idID
		if opts.Nonce != "" {
			ic["nonce"] = opts.Nonce
		}
		if set.IDToken, err = i.Sign(ic); err != nil {
			return nil, fmt.Errorf("jwt: sign id token: %w", err)
		}
	}

	// ─── refresh token ───
	if wantRefresh {
		raw, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return nil, err
		}
		if _, _, err := i.persist(ctx, types.TokenTypeRefresh, app, p, tokens.SHA256Base64URL(raw), i.RefreshTTL, now, resourceProps(p)); err != nil {
			return nil, err
		}
		set.RefreshToken = raw
	}

	log.Debug("tokens issued", logger.Subject(sub), logger.TokenID(accessID),
		logger.Bool("id_token", set.IDToken != ""), logger.Bool("refresh_token", set.RefreshToken != ""))
	return set, nil
}

// CodeRequest son los datos de /authorize que viajan con el código.
type CodeRequest struct {
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
}

// IssueAuthorizationCode genera un código opaco de un solo uso ligado a la
// authorization del principal. Sólo el hash se persiste.
func (i *Issuer) IssueAuthorizationCode(ctx context.Context, app *repository.Application, p *claims.Principal, req CodeRequest) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	props := resourceProps(p)
	if props == nil {
		props = map[string]string{}
	}
	props[PropRedirectURI] = req.RedirectURI
	if req.CodeChallenge != "" {
		props[PropCodeChallenge] = req.CodeChallenge
		props[PropCodeChallengeMethod] = req.CodeChallengeMethod
	}
	if req.Nonce != "" {
		props[PropNonce] = req.Nonce
	}
	if _, _, err := i.persist(ctx, types.TokenTypeAuthorizationCode, app, p, tokens.SHA256Base64URL(raw), i.CodeTTL, i.Now().UTC(), props); err != nil {
		return "", err
	}
	return raw, nil
}

func (i *Issuer) persist(ctx context.Context, typ types.TokenType, app *repository.Application, p *claims.Principal,
	ref string, ttl time.Duration, now time.Time, props map[string]string) (string, time.Time, error) {
	exp := now.Add(ttl)
	row := &repository.Token{
		ID:              uuid.NewString(),
		ReferenceID:     ref,
		Type:            typ,
		Subject:         p.Subject(),
		ApplicationID:   app.ID,
		AuthorizationID: p.AuthorizationID,
		Status:          types.StatusValid,
		Scopes:          p.Scopes,
		Properties:      props,
		CreatedAt:       now,
		ExpiresAt:       &exp,
	}
	if err := i.Tokens.Create(ctx, row); err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: persist %s: %w", typ, err)
	}
	return row.ID, exp, nil
}

// accessAudience: resources de los scopes; si no hay, el client_id.
func accessAudience(app *repository.Application, p *claims.Principal) any {
	switch len(p.Resources) {
	case 0:
		return app.ClientID
	case 1:
		return p.Resources[0]
	default:
		return p.Resources
	}
}

func resourceProps(p *claims.Principal) map[string]string {
	if len(p.Resources) == 0 {
		return nil
	}
	return map[string]string{PropResources: strings.Join(p.Resources, " ")}
}
