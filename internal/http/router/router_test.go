package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	healthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/session"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	sessiondto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	healthsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/health"
	oauthsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	oidcsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	sessionsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	token "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
)

const (
	iss          = "https://id.example.test"
	redirectURI  = "https://app.example.test/callback"
	byeURI       = "https://app.example.test/bye"
	userPassword = "Correct-Horse-1"
	rsSecret     = "rs-secret"
	verifier     = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

var perm = struct{ ept, gt, scp string }{
	types.PermissionPrefixEndpoint, types.PermissionPrefixGrantType, types.PermissionPrefixScope,
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	keys, err := jwtx.GenerateKeySet()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(iss, keys, st.Tokens(), st.Authorizations())

	hash, err := bcrypt.GenerateFromPassword([]byte(userPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.Users().Create(ctx, &repository.User{
		UserName: "alice", Email: "alice@example.test", Name: "Alice", PasswordHash: string(hash),
		Roles: []string{"user"}, LockoutEnabled: true,
	}))

	require.NoError(t, st.Applications().Create(ctx, &repository.Application{
		ClientID:               "web",
		DisplayName:            "Web",
		ClientType:             types.ClientTypePublic,
		ConsentType:            types.ConsentExplicit,
		RedirectURIs:           []string{redirectURI},
		PostLogoutRedirectURIs: []string{byeURI},
		Permissions: []string{
			perm.ept + types.PermissionEndpointAuthorization,
			perm.ept + types.PermissionEndpointToken,
			perm.ept + types.PermissionEndpointRevocation,
			perm.ept + types.PermissionEndpointLogout,
			perm.gt + types.GrantTypeAuthorizationCode,
			perm.gt + types.GrantTypeRefreshToken,
			perm.scp + types.ScopeProfile,
		},
	}))
	secret, err := bcrypt.GenerateFromPassword([]byte(rsSecret), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.Applications().Create(ctx, &repository.Application{
		ClientID:    "rs",
		DisplayName: "Resource Server",
		ClientType:  types.ClientTypeConfidential,
		ConsentType: types.ConsentImplicit,
		SecretHash:  string(secret),
		Permissions: []string{perm.ept + types.PermissionEndpointIntrospection},
	}))

	dir := identity.NewDirectory(identity.Deps{Users: st.Users(), Lockout: identity.LockoutOptions{MaxFailedAttempts: 5, Duration: time.Minute}})
	oauthSvcs := oauthsvc.NewServices(oauthsvc.Deps{
		Applications:   st.Applications(),
		Scopes:         st.Scopes(),
		Authorizations: st.Authorizations(),
		Tokens:         st.Tokens(),
		Directory:      dir,
		Issuer:         issuer,
		Options:        oauthsvc.Options{RequirePKCE: true},
	})
	cookie := sessiondto.CookieConfig{Name: "sid", SameSite: "Lax"}
	mem := cache.NewMemory("test:")
	sessSvcs := sessionsvc.NewServices(sessionsvc.Deps{
		Cache: mem, Directory: dir, Applications: st.Applications(), Issuer: issuer, Cookie: cookie,
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	return New(Deps{
		OAuth:     oauthctrl.NewControllers(oauthSvcs),
		Session:   sessionctrl.NewControllers(sessSvcs, cookie),
		Discovery: oidcctrl.NewDiscoveryController(oidcsvc.NewDiscoveryService(oidcsvc.Deps{Issuer: iss, Keys: keys, GrantTypes: oauthsvc.DefaultGrantTypes})),
		JWKS:      oidcctrl.NewJWKSController(oidcsvc.NewJWKSService(keys)),
		Health: healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
			Keys: keys, StoreCheck: st.Ping, CacheCheck: mem.Ping,
		})),
		Sessions:   sessSvcs.Store,
		CookieName: cookie.Name,
		Logger:     zap.NewNop(),
		Gatherer:   reg,
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestHealthAndDiscovery(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, iss, meta["issuer"])
	assert.Equal(t, iss+"/connect/token", meta["token_endpoint"])

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kty":"OKP"`)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizationCodeFlow(t *testing.T) {
	h := newServer(t)

	authz := url.Values{
		"response_type":         {"code"},
		"client_id":             {"web"},
		"redirect_uri":          {redirectURI},
		"scope":                 {"openid profile offline_access"},
		"state":                 {"af0ifjsldkj"},
		"code_challenge":        {token.SHA256Base64URL(verifier)},
		"code_challenge_method": {"S256"},
	}

	// 1) sin sesión: challenge hacia el login
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/connect/authorize?"+authz.Encode(), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/connect/login", loc.Path)
	returnTo := loc.Query().Get("return_to")
	require.True(t, strings.HasPrefix(returnTo, "/connect/authorize?"))

	// 2) login por form vuelve a return_to
	rec = do(t, h, postForm("/connect/login", url.Values{
		"login": {"alice"}, "password": {userPassword}, "return_to": {returnTo},
	}))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, returnTo, rec.Header().Get("Location"))
	sid := sessionCookie(t, rec)
	assert.True(t, sid.HttpOnly)

	// 3) cliente explícito sin consentimiento previo
	req := httptest.NewRequest(http.MethodGet, returnTo, nil)
	req.AddCookie(sid)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var prompt dto.ConsentPrompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prompt))
	assert.Equal(t, "consent_required", prompt.Status)
	assert.Equal(t, "web", prompt.ClientID)

	// accept exige sesión
	rec = do(t, h, postForm(prompt.AcceptURL, prompt.Request.Values()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 4) accept emite el código
	rec = do(t, h, postForm(prompt.AcceptURL, prompt.Request.Values(), sid))
	require.Equal(t, http.StatusFound, rec.Code)
	cb, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "af0ifjsldkj", cb.Query().Get("state"))
	code := cb.Query().Get("code")
	require.NotEmpty(t, code)

	// 5) canje del código
	tokenForm := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
		"client_id":     {"web"},
	}
	rec = do(t, h, postForm("/connect/token", tokenForm))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var tok dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	assert.NotEmpty(t, tok.IDToken)

	// replay del código
	rec = do(t, h, postForm("/connect/token", tokenForm))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invalid_grant"`)

	// 6) el replay revocó todo lo emitido para la autorización
	introspect := postForm("/connect/introspect", url.Values{"token": {tok.AccessToken}})
	introspect.SetBasicAuth("rs", rsSecret)
	rec = do(t, h, introspect)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":false}`, rec.Body.String())
}

func TestIntrospectAndRevokeOverHTTP(t *testing.T) {
	h := newServer(t)

	// sesión + authorize con consentimiento
	rec := do(t, h, postForm("/connect/login", url.Values{"login": {"alice"}, "password": {userPassword}}))
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sessionCookie(t, rec)

	authz := url.Values{
		"response_type": {"code"}, "client_id": {"web"}, "redirect_uri": {redirectURI},
		"scope": {"openid offline_access"}, "code_challenge": {verifier}, "code_challenge_method": {"plain"},
	}
	rec = do(t, h, postForm("/connect/authorize/accept", authz, sid))
	require.Equal(t, http.StatusFound, rec.Code)
	cb, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	rec = do(t, h, postForm("/connect/token", url.Values{
		"grant_type": {"authorization_code"}, "code": {cb.Query().Get("code")},
		"redirect_uri": {redirectURI}, "code_verifier": {verifier}, "client_id": {"web"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))

	introspect := func() map[string]any {
		req := postForm("/connect/introspect", url.Values{"token": {tok.AccessToken}})
		req.SetBasicAuth("rs", rsSecret)
		rec := do(t, h, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}
	active := introspect()
	assert.Equal(t, true, active["active"])
	assert.Equal(t, "web", active["client_id"])

	// cliente sin credenciales no introspecciona: invalid_client como 400
	rec = do(t, h, postForm("/connect/introspect", url.Values{"token": {tok.AccessToken}, "client_id": {"rs"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_client")
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))

	// secret incorrecto en revoke: mismo contrato
	req := postForm("/connect/revoke", url.Values{"token": {tok.AccessToken}})
	req.SetBasicAuth("rs", "wrong-secret")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_client")

	// revocar el refresh revoca en cascada el access token
	rec = do(t, h, postForm("/connect/revoke", url.Values{"token": {tok.RefreshToken}, "client_id": {"web"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, false, introspect()["active"])

	// idempotente
	rec = do(t, h, postForm("/connect/revoke", url.Values{"token": {tok.RefreshToken}, "client_id": {"web"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenEndpointErrors(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, postForm("/connect/token", url.Values{"grant_type": {"urn:example:custom"}, "client_id": {"web"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unsupported_grant_type"`)

	// Basic y client_secret en el form a la vez
	req := postForm("/connect/token", url.Values{"grant_type": {"client_credentials"}, "client_secret": {"x"}})
	req.SetBasicAuth("rs", rsSecret)
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invalid_request"`)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/connect/token", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthorizeErrorsDoNotRedirectToUnregisteredURI(t *testing.T) {
	h := newServer(t)

	q := url.Values{"response_type": {"code"}, "client_id": {"web"}, "redirect_uri": {"https://evil.example/cb"}}
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/connect/authorize?"+q.Encode(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))

	// prompt=none sin sesión vuelve al cliente con login_required
	q = url.Values{
		"response_type": {"code"}, "client_id": {"web"}, "redirect_uri": {redirectURI},
		"scope": {"openid"}, "state": {"s1"}, "prompt": {"none"},
		"code_challenge": {verifier}, "code_challenge_method": {"plain"},
	}
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/connect/authorize?"+q.Encode(), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	cb, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "login_required", cb.Query().Get("error"))
	assert.Equal(t, "s1", cb.Query().Get("state"))
}

func TestLogout(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, postForm("/connect/login", url.Values{"login": {"alice"}, "password": {userPassword}}))
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sessionCookie(t, rec)

	q := url.Values{"client_id": {"web"}, "post_logout_redirect_uri": {byeURI}, "state": {"st"}}
	req := httptest.NewRequest(http.MethodGet, "/connect/logout?"+q.Encode(), nil)
	req.AddCookie(sid)
	rec = do(t, h, req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, byeURI+"?state=st", rec.Header().Get("Location"))
	cleared := sessionCookie(t, rec)
	assert.Equal(t, -1, cleared.MaxAge)

	// la sesión ya no autentica
	rec = do(t, h, postForm("/connect/authorize/deny", url.Values{"client_id": {"web"}}, sid))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// URI no registrada: default "/"
	q.Set("post_logout_redirect_uri", "https://evil.example/")
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/connect/logout?"+q.Encode(), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// sin contexto de protocolo: confirmación
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/connect/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signed_out")
}
