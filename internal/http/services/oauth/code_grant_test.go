package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

func (f *fixture) code(t *testing.T, clientID, scope string) string {
	t.Helper()
	res, err := f.svcs.Authorize.Authorize(context.Background(), authorizeRequest(clientID, scope), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
	return res.Code
}

func codeRequest(clientID, code string) dto.TokenRequest {
	return dto.TokenRequest{
		GrantType:    types.GrantTypeAuthorizationCode,
		Code:         code,
		RedirectURI:  testRedirect,
		CodeVerifier: testVerifier,
		Client:       dto.ClientCredentials{ClientID: clientID},
	}
}

func TestCodeGrant_Exchange(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	code := f.code(t, "web", "openid profile offline_access")
	resp, err := f.svcs.Token.Exchange(ctx, codeRequest("web", code))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.IDToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "openid profile offline_access", resp.Scope)

	row, err := f.st.Tokens().GetByReferenceID(ctx, tokens.SHA256Base64URL(code))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRedeemed, row.Status)
	assert.NotNil(t, row.RedeemedAt)
}

func TestCodeGrant_ClaimsAreReadFromDirectory(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	code := f.code(t, "web", "openid roles")
	resp, err := f.svcs.Token.Exchange(ctx, codeRequest("web", code))
	require.NoError(t, err)

	claims, err := f.issuer.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims["sub"])
	assert.Equal(t, []any{"admin", "user"}, claims["role"])
	assert.Equal(t, "Alice Liddell", claims["name"])
}

func TestCodeGrant_ReplayRevokesAuthorizationTokens(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	code := f.code(t, "web", "openid offline_access")
	_, err := f.svcs.Token.Exchange(ctx, codeRequest("web", code))
	require.NoError(t, err)

	_, err = f.svcs.Token.Exchange(ctx, codeRequest("web", code))
	requireOAuthError(t, err, oauth.CodeInvalidGrant)

	authz := f.authorizations(t, app.ID)
	require.Len(t, authz, 1)
	linked, err := f.st.Tokens().ListByAuthorizationID(ctx, authz[0].ID)
	require.NoError(t, err)
	for _, tk := range linked {
		assert.NotEqual(t, types.StatusValid, tk.Status, "token %s (%s) still valid", tk.ID, tk.Type)
	}
}

func TestCodeGrant_BindingChecks(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	f.addClient(t, "other", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*dto.TokenRequest)
		code string
	}{
		{"missing code", func(r *dto.TokenRequest) { r.Code = "" }, oauth.CodeInvalidRequest},
		{"unknown code", func(r *dto.TokenRequest) { r.Code = "nope" }, oauth.CodeInvalidGrant},
		{"other client", func(r *dto.TokenRequest) { r.Client.ClientID = "other" }, oauth.CodeInvalidGrant},
		{"redirect mismatch", func(r *dto.TokenRequest) { r.RedirectURI = "https://app.example.test/other" }, oauth.CodeInvalidGrant},
		{"wrong verifier", func(r *dto.TokenRequest) { r.CodeVerifier = "wrong-verifier-wrong-verifier-wrong-verifier" }, oauth.CodeInvalidGrant},
		{"missing verifier", func(r *dto.TokenRequest) { r.CodeVerifier = "" }, oauth.CodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := codeRequest("web", f.code(t, "web", "openid"))
			tc.mut(&req)
			_, err := f.svcs.Token.Exchange(ctx, req)
			requireOAuthError(t, err, tc.code)
		})
	}
}

func TestRefreshGrant_RotationAndScopeNarrowing(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	first, err := f.svcs.Token.Exchange(ctx, codeRequest("web", f.code(t, "web", "openid profile offline_access")))
	require.NoError(t, err)

	refresh := func(rt, scope string) (*dto.TokenResponse, error) {
		return f.svcs.Token.Exchange(ctx, dto.TokenRequest{
			GrantType:    types.GrantTypeRefreshToken,
			RefreshToken: rt,
			Scope:        scope,
			Client:       dto.ClientCredentials{ClientID: "web"},
		})
	}

	second, err := refresh(first.RefreshToken, "")
	require.NoError(t, err)
	assert.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// el refresh viejo ya fue canjeado
	_, err = refresh(first.RefreshToken, "")
	requireOAuthError(t, err, oauth.CodeInvalidGrant)

	// el replay revocó la cadena completa
	_, err = refresh(second.RefreshToken, "")
	requireOAuthError(t, err, oauth.CodeInvalidGrant)

	third, err := f.svcs.Token.Exchange(ctx, codeRequest("web", f.code(t, "web", "openid profile offline_access")))
	require.NoError(t, err)
	_, err = refresh(third.RefreshToken, "openid email")
	requireOAuthError(t, err, oauth.CodeInvalidScope)

	narrowed, err := refresh(third.RefreshToken, "openid offline_access")
	require.NoError(t, err)
	assert.Equal(t, "openid offline_access", narrowed.Scope)
}

func TestRefreshGrant_RevokedAuthorization(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	resp, err := f.svcs.Token.Exchange(ctx, codeRequest("web", f.code(t, "web", "openid offline_access")))
	require.NoError(t, err)

	authz := f.authorizations(t, app.ID)
	require.Len(t, authz, 1)
	require.NoError(t, f.st.Authorizations().UpdateStatus(ctx, authz[0].ID, types.StatusRevoked))

	_, err = f.svcs.Token.Exchange(ctx, dto.TokenRequest{
		GrantType:    types.GrantTypeRefreshToken,
		RefreshToken: resp.RefreshToken,
		Client:       dto.ClientCredentials{ClientID: "web"},
	})
	requireOAuthError(t, err, oauth.CodeInvalidGrant)
}

func TestRefreshGrant_DisabledUser(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "svc", types.ClientTypeConfidential, types.ConsentImplicit)
	ctx := context.Background()

	resp, err := f.svcs.Token.Exchange(ctx, passwordRequest("alice", testPassword, "offline_access"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken, "password grant with offline_access creates an ad-hoc authorization")

	// lockout vigente: el directorio es la fuente de verdad
	for i := 0; i < 5; i++ {
		_, _ = f.svcs.Token.Exchange(ctx, passwordRequest("alice", "wrong-password", ""))
	}
	_, err = f.svcs.Token.Exchange(ctx, dto.TokenRequest{
		GrantType:    types.GrantTypeRefreshToken,
		RefreshToken: resp.RefreshToken,
		Client:       dto.ClientCredentials{ClientID: "svc", ClientSecret: testSecret},
	})
	oe := requireOAuthError(t, err, oauth.CodeInvalidGrant)
	assert.Contains(t, oe.Description, "no longer allowed")
}

func TestCodeGrant_ExpiredCodeIsInvalidGrant(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	code := f.code(t, "web", "openid")
	f.skew = f.issuer.CodeTTL + time.Second

	_, err := f.svcs.Token.Exchange(ctx, codeRequest("web", code))
	requireOAuthError(t, err, oauth.CodeInvalidGrant)

	// el código expirado no se canjea
	row, err := f.st.Tokens().GetByReferenceID(ctx, tokens.SHA256Base64URL(code))
	require.NoError(t, err)
	assert.Equal(t, types.StatusValid, row.Status)
	assert.Nil(t, row.RedeemedAt)
}

func TestRefreshGrant_ExpiredRefreshTokenIsInvalidGrant(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "svc", types.ClientTypeConfidential, types.ConsentImplicit)
	ctx := context.Background()

	resp, err := f.svcs.Token.Exchange(ctx, passwordRequest("alice", testPassword, "offline_access"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken)

	f.skew = f.issuer.RefreshTTL + time.Second
	_, err = f.svcs.Token.Exchange(ctx, dto.TokenRequest{
		GrantType:    types.GrantTypeRefreshToken,
		RefreshToken: resp.RefreshToken,
		Client:       dto.ClientCredentials{ClientID: "svc", ClientSecret: testSecret},
	})
	requireOAuthError(t, err, oauth.CodeInvalidGrant)
}
