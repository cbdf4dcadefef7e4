package oauth

import (
	"context"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

// findToken busca primero por id y después por reference id. Para un JWT
// propio el id es su jti; para valores opacos el reference id es su SHA-256.
// Retorna (nil, nil) si no existe.
func findToken(ctx context.Context, repo repository.TokenRepository, issuer *jwtx.Issuer, raw string) (*repository.Token, error) {
	id := issuer.TokenID(raw)
	if id == "" {
		id = raw
	}
	tok, err := repo.GetByID(ctx, id)
	if err == nil {
		return tok, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	tok, err = repo.GetByReferenceID(ctx, tokens.SHA256Base64URL(raw))
	if err == nil {
		return tok, nil
	}
	if repository.IsNotFound(err) {
		return nil, nil
	}
	return nil, err
}
