package oauth

import (
	"context"

	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
)

// OutcomeKind es el tipo de resultado de una estrategia de grant.
type OutcomeKind int

const (
	OutcomeSignIn OutcomeKind = iota + 1
	OutcomeForbid
	OutcomeNotImplemented
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSignIn:
		return "signin"
	case OutcomeForbid:
		return "forbid"
	case OutcomeNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// GrantOutcome es SignIn(principal) | Forbid(error) | NotImplemented.
type GrantOutcome struct {
	Kind      OutcomeKind
	Principal *claims.Principal
	Error     *oauth.Error
	// Nonce viaja del código al id_token.
	Nonce string
}

func SignIn(p *claims.Principal) GrantOutcome { return GrantOutcome{Kind: OutcomeSignIn, Principal: p} }

func Forbid(e *oauth.Error) GrantOutcome { return GrantOutcome{Kind: OutcomeForbid, Error: e} }

func NotImplemented() GrantOutcome { return GrantOutcome{Kind: OutcomeNotImplemented} }

// GrantRequest es el request de token con el cliente ya autenticado.
type GrantRequest struct {
	dto.TokenRequest
	Client *repository.Application
	// Scopes es el parámetro scope ya validado contra el cliente.
	Scopes []string
}

// grantStrategy resuelve un grant type. Los errores retornados son fatales;
// los rechazos de protocolo van en el outcome.
type grantStrategy interface {
	Handle(ctx context.Context, req GrantRequest) (GrantOutcome, error)
}
