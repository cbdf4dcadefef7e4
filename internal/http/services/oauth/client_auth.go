package oauth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
)

// ClientAuthenticator autentica clientes en /token, /introspect y /revoke.
type ClientAuthenticator interface {
	// Authenticate retorna la aplicación o un *oauth.Error invalid_client.
	// Cualquier otro error es fatal.
	Authenticate(ctx context.Context, creds dto.ClientCredentials) (*repository.Application, error)
}

type clientAuthenticator struct {
	apps repository.ApplicationRepository
}

// NewClientAuthenticator crea el autenticador de clientes.
func NewClientAuthenticator(apps repository.ApplicationRepository) ClientAuthenticator {
	return &clientAuthenticator{apps: apps}
}

func (c *clientAuthenticator) Authenticate(ctx context.Context, creds dto.ClientCredentials) (*repository.Application, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("ClientAuthenticator.Authenticate"), logger.ClientID(creds.ClientID))

	if creds.ClientID == "" {
		return nil, oauth.InvalidClient("The mandatory 'client_id' parameter is missing.")
	}
	app, err := c.apps.GetByClientID(ctx, creds.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("unknown client")
			return nil, oauth.InvalidClient("The specified 'client_id' is invalid.")
		}
		return nil, fmt.Errorf("lookup client: %w", err)
	}

	if !app.IsConfidential() {
		// un cliente público no puede presentar secreto
		if creds.ClientSecret != "" {
			return nil, oauth.InvalidClient("The 'client_secret' parameter is not valid for this client application.")
		}
		return app, nil
	}
	if creds.ClientSecret == "" || !password.Verify(creds.ClientSecret, app.SecretHash) {
		log.Debug("client secret mismatch")
		return nil, oauth.InvalidClient("The specified client credentials are invalid.")
	}
	return app, nil
}
