package jwt

import (
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
)

// Keyfunc elige la pública por 'kid' del header (activa o retirada).
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return i.Keys.Pub, nil
		}
		return i.Keys.PublicKeyByKID(kid)
	}
}

// parseSigned valida firma e issuer. Con lenient no valida exp/nbf.
func (i *Issuer) parseSigned(raw string, lenient bool) (jwtv5.MapClaims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{"EdDSA"}), jwtv5.WithIssuer(i.Iss)}
	if lenient {
		opts = append(opts, jwtv5.WithoutClaimsValidation())
	}
	claims := jwtv5.MapClaims{}
	tok, err := jwtv5.ParseWithClaims(raw, claims, i.Keyfunc(), opts...)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if lenient {
		// WithoutClaimsValidation también saltea iss.
		if iss, _ := claims["iss"].(string); iss != i.Iss {
			return nil, ErrInvalidIssuer
		}
	}
	return claims, nil
}

// TokenID devuelve el jti si raw es un JWT emitido por este servidor
// (aunque esté expirado). Para valores opacos retorna "".
func (i *Issuer) TokenID(raw string) string {
	if strings.Count(raw, ".") != 2 {
		return ""
	}
	claims, err := i.parseSigned(raw, true)
	if err != nil {
		return ""
	}
	jti, _ := claims["jti"].(string)
	return jti
}

// IDTokenHint son los datos útiles de un id_token_hint.
type IDTokenHint struct {
	Subject  string
	Audience []string
}

// ParseIDTokenHint valida firma e issuer de un id_token; acepta tokens expirados
// (OIDC RP-Initiated Logout §2).
func (i *Issuer) ParseIDTokenHint(raw string) (*IDTokenHint, error) {
	claims, err := i.parseSigned(raw, true)
	if err != nil {
		return nil, err
	}
	sub, _ := claims.GetSubject()
	aud, _ := claims.GetAudience()
	if sub == "" {
		return nil, ErrInvalidToken
	}
	return &IDTokenHint{Subject: sub, Audience: []string(aud)}, nil
}

// ParseAccessToken valida un access token propio incluyendo exp/nbf.
func (i *Issuer) ParseAccessToken(raw string) (map[string]any, error) {
	claims, err := i.parseSigned(raw, false)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
