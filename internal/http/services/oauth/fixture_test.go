package oauth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
)

const (
	testIss      = "https://id.example.test"
	testRedirect = "https://app.example.test/callback"
	testSecret   = "s3cr3t-value"
	testPassword = "Correct-Horse-1"
)

type fixture struct {
	st     *memory.Store
	issuer *jwtx.Issuer
	svcs   Services
	user   *repository.User
	// skew adelanta el reloj de los services; el issuer firma con la hora real.
	skew time.Duration
	// verifies cuenta las comparaciones de password del directorio.
	verifies atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	keys, err := jwtx.GenerateKeySet()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(testIss, keys, st.Tokens(), st.Authorizations())

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &repository.User{
		UserName:       "alice",
		Email:          "alice@example.test",
		Name:           "Alice Liddell",
		PasswordHash:   string(hash),
		SecurityStamp:  "stamp-1",
		Roles:          []string{"admin", "user"},
		LockoutEnabled: true,
	}
	require.NoError(t, st.Users().Create(ctx, user))
	require.NoError(t, st.Scopes().Upsert(ctx, &repository.Scope{Name: "api", Resources: []string{"resource-server"}}))

	f := &fixture{st: st, issuer: issuer, user: user}
	dir := identity.NewDirectory(identity.Deps{
		Users:   st.Users(),
		Lockout: identity.LockoutOptions{MaxFailedAttempts: 5, Duration: time.Minute},
		Verify: func(plain, encoded string) bool {
			f.verifies.Add(1)
			return password.Verify(plain, encoded)
		},
		DummyParams: password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32},
	})
	f.svcs = NewServices(Deps{
		Applications:   st.Applications(),
		Scopes:         st.Scopes(),
		Authorizations: st.Authorizations(),
		Tokens:         st.Tokens(),
		Directory:      dir,
		Issuer:         issuer,
		Options:        Options{RequirePKCE: true, Now: func() time.Time { return time.Now().Add(f.skew) }},
	})
	return f
}

// allPerms cubre todos los endpoints, grants y scopes de prueba.
var allPerms = []string{
	types.PermissionPrefixEndpoint + types.PermissionEndpointAuthorization,
	types.PermissionPrefixEndpoint + types.PermissionEndpointToken,
	types.PermissionPrefixEndpoint + types.PermissionEndpointIntrospection,
	types.PermissionPrefixEndpoint + types.PermissionEndpointRevocation,
	types.PermissionPrefixEndpoint + types.PermissionEndpointLogout,
	types.PermissionPrefixGrantType + types.GrantTypeAuthorizationCode,
	types.PermissionPrefixGrantType + types.GrantTypeRefreshToken,
	types.PermissionPrefixGrantType + types.GrantTypePassword,
	types.PermissionPrefixGrantType + types.GrantTypeClientCredentials,
	types.PermissionPrefixScope + types.ScopeProfile,
	types.PermissionPrefixScope + types.ScopeEmail,
	types.PermissionPrefixScope + types.ScopeRoles,
	types.PermissionPrefixScope + "api",
}

func (f *fixture) addClient(t *testing.T, clientID string, ct types.ClientType, consent types.ConsentType, perms ...string) *repository.Application {
	t.Helper()
	if perms == nil {
		perms = allPerms
	}
	app := &repository.Application{
		ClientID:               clientID,
		DisplayName:            "App " + clientID,
		ClientType:             ct,
		ConsentType:            consent,
		RedirectURIs:           []string{testRedirect},
		PostLogoutRedirectURIs: []string{"https://app.example.test/bye"},
		Permissions:            perms,
	}
	if ct == types.ClientTypeConfidential {
		h, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
		require.NoError(t, err)
		app.SecretHash = string(h)
	}
	require.NoError(t, f.st.Applications().Create(context.Background(), app))
	return app
}

func (f *fixture) authorizations(t *testing.T, appID string) []repository.Authorization {
	t.Helper()
	out, err := f.st.Authorizations().Find(context.Background(), repository.AuthorizationFilter{Subject: f.user.ID, ApplicationID: appID})
	require.NoError(t, err)
	return out
}

func requireOAuthError(t *testing.T, err error, code string) *oauth.Error {
	t.Helper()
	require.Error(t, err)
	oe, ok := oauth.As(err)
	require.True(t, ok, "expected *oauth.Error, got %v", err)
	require.Equal(t, code, oe.Code)
	return oe
}
