package oauth

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

func authorizeRequest(clientID, scope string) dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            clientID,
		RedirectURI:         testRedirect,
		Scope:               scope,
		State:               "xyz",
		Nonce:               "n-0S6_WzA2Mj",
		CodeChallenge:       tokens.SHA256Base64URL(testVerifier),
		CodeChallengeMethod: "S256",
	}
}

func TestAuthorize_ImplicitSignInThenReuse(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	res, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid profile"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
	assert.NotEmpty(t, res.Code)
	assert.Equal(t, "xyz", res.State)

	records := f.authorizations(t, app.ID)
	require.Len(t, records, 1)
	assert.Equal(t, types.AuthorizationPermanent, records[0].Type)
	assert.Equal(t, types.StatusValid, records[0].Status)

	res2, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid profile"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res2.Type)
	assert.Len(t, f.authorizations(t, app.ID), 1, "second call must reuse the record")
}

func TestAuthorize_ImplicitNeverRequiresConsent(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)

	for _, prompt := range []string{"", "consent", "none"} {
		req := authorizeRequest("web", "openid")
		req.Prompt = prompt
		res, err := f.svcs.Authorize.Authorize(context.Background(), req, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, dto.AuthResultSuccess, res.Type, "prompt=%q", prompt)
	}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	res, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid"), "")
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultNeedLogin, res.Type)
	u, err := url.Parse(res.LoginURL)
	require.NoError(t, err)
	assert.Equal(t, "/connect/login", u.Path)
	back, err := url.Parse(u.Query().Get("return_to"))
	require.NoError(t, err)
	assert.Equal(t, "/connect/authorize", back.Path)
	assert.Equal(t, "web", back.Query().Get("client_id"))

	req := authorizeRequest("web", "openid")
	req.Prompt = "none"
	res, err = f.svcs.Authorize.Authorize(ctx, req, "")
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	assert.Equal(t, oauth.CodeLoginRequired, res.ErrorCode)
	assert.Equal(t, "xyz", res.State)
}

func TestAuthorize_PromptLoginStripsLoginFromReturnTo(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)

	req := authorizeRequest("web", "openid")
	req.Prompt = "login consent"
	res, err := f.svcs.Authorize.Authorize(context.Background(), req, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultNeedLogin, res.Type)

	u, _ := url.Parse(res.LoginURL)
	back, _ := url.Parse(u.Query().Get("return_to"))
	assert.Equal(t, "consent", back.Query().Get("prompt"))
}

func TestAuthorize_ExplicitConsent(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentExplicit)
	ctx := context.Background()

	// sin record y prompt=none → consent_required
	req := authorizeRequest("web", "openid profile")
	req.Prompt = "none"
	res, err := f.svcs.Authorize.Authorize(ctx, req, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	assert.Equal(t, oauth.CodeConsentRequired, res.ErrorCode)

	// sin record → prompt de consentimiento
	res, err = f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid profile"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultConsent, res.Type)
	assert.Equal(t, []string{"openid", "profile"}, res.Consent.Scopes)
	assert.Empty(t, f.authorizations(t, app.ID))

	// accept crea un record; un segundo accept crea otro
	res, err = f.svcs.Authorize.Accept(ctx, authorizeRequest("web", "openid profile"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
	_, err = f.svcs.Authorize.Accept(ctx, authorizeRequest("web", "openid profile"), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, f.authorizations(t, app.ID), 2)

	// con record: sign-in silencioso, salvo prompt=consent
	res, err = f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid"), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.AuthResultSuccess, res.Type)

	req = authorizeRequest("web", "openid")
	req.Prompt = "consent"
	res, err = f.svcs.Authorize.Authorize(ctx, req, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.AuthResultConsent, res.Type)

	// scopes no cubiertos por el record → consentimiento otra vez
	res, err = f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid email"), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.AuthResultConsent, res.Type)
	assert.Len(t, f.authorizations(t, app.ID), 2)
}

func TestAuthorize_SystematicAlwaysAsks(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentSystematic)
	ctx := context.Background()

	_, err := f.svcs.Authorize.Accept(ctx, authorizeRequest("web", "openid"), f.user.ID)
	require.NoError(t, err)

	res, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "openid"), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.AuthResultConsent, res.Type)
}

func TestAuthorize_External(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "partner", types.ClientTypePublic, types.ConsentExternal)
	ctx := context.Background()

	res, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("partner", "openid"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	assert.Equal(t, oauth.CodeConsentRequired, res.ErrorCode)

	res, err = f.svcs.Authorize.Accept(ctx, authorizeRequest("partner", "openid"), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, oauth.CodeConsentRequired, res.ErrorCode)
}

func TestAuthorize_Deny(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentExplicit)

	res, err := f.svcs.Authorize.Deny(context.Background(), authorizeRequest("web", "openid"), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	assert.Equal(t, oauth.CodeAccessDenied, res.ErrorCode)
	assert.Equal(t, testRedirect, res.RedirectURI)
}

func TestAuthorize_Validation(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	// no redirigibles
	nonRedirect := []struct {
		name string
		mut  func(*dto.AuthorizeRequest)
		code string
	}{
		{"missing client_id", func(r *dto.AuthorizeRequest) { r.ClientID = "" }, oauth.CodeInvalidRequest},
		{"unknown client", func(r *dto.AuthorizeRequest) { r.ClientID = "ghost" }, oauth.CodeInvalidClient},
		{"missing redirect_uri", func(r *dto.AuthorizeRequest) { r.RedirectURI = "" }, oauth.CodeInvalidRequest},
		{"unregistered redirect_uri", func(r *dto.AuthorizeRequest) { r.RedirectURI = "https://evil.test/cb" }, oauth.CodeInvalidRequest},
	}
	for _, tc := range nonRedirect {
		t.Run(tc.name, func(t *testing.T) {
			req := authorizeRequest("web", "openid")
			tc.mut(&req)
			_, err := f.svcs.Authorize.Authorize(ctx, req, f.user.ID)
			requireOAuthError(t, err, tc.code)
		})
	}

	redirect := []struct {
		name string
		mut  func(*dto.AuthorizeRequest)
		code string
	}{
		{"token response type", func(r *dto.AuthorizeRequest) { r.ResponseType = "token" }, oauth.CodeUnsupportedRespType},
		{"unknown scope permission", func(r *dto.AuthorizeRequest) { r.Scope = "openid admin" }, oauth.CodeInvalidScope},
		{"prompt none combined", func(r *dto.AuthorizeRequest) { r.Prompt = "none login" }, oauth.CodeInvalidRequest},
		{"unknown prompt", func(r *dto.AuthorizeRequest) { r.Prompt = "bogus" }, oauth.CodeInvalidRequest},
		{"pkce required for public", func(r *dto.AuthorizeRequest) { r.CodeChallenge, r.CodeChallengeMethod = "", "" }, oauth.CodeInvalidRequest},
		{"bad pkce method", func(r *dto.AuthorizeRequest) { r.CodeChallengeMethod = "S512" }, oauth.CodeInvalidRequest},
	}
	for _, tc := range redirect {
		t.Run(tc.name, func(t *testing.T) {
			req := authorizeRequest("web", "openid")
			tc.mut(&req)
			res, err := f.svcs.Authorize.Authorize(ctx, req, f.user.ID)
			require.NoError(t, err)
			require.Equal(t, dto.AuthResultError, res.Type)
			assert.Equal(t, tc.code, res.ErrorCode)
			assert.Equal(t, "xyz", res.State)
		})
	}
}

func TestAuthorize_MissingSessionUserIsFatal(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)

	_, err := f.svcs.Authorize.Authorize(context.Background(), authorizeRequest("web", "openid"), "deleted-user")
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestAccept_LockedOutUserIsChallenged(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentExplicit)
	ctx := context.Background()

	end := time.Now().Add(time.Hour)
	require.NoError(t, f.st.Users().UpdateLockout(ctx, f.user.ID, repository.LockoutState{LockoutEnd: &end}))

	res, err := f.svcs.Authorize.Accept(ctx, authorizeRequest("web", "openid"), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.AuthResultNeedLogin, res.Type)
	assert.Empty(t, res.Code)
	assert.Empty(t, f.authorizations(t, app.ID))
}

func TestAuthorize_ConcurrentSignInCreatesOneRecord(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svcs.Authorize.Authorize(ctx, authorizeRequest("web", "profile openid"), f.user.ID)
			if err == nil && res.Type != dto.AuthResultSuccess {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records := f.authorizations(t, app.ID)
	require.Len(t, records, 1)
	assert.Equal(t, types.AuthorizationPermanent, records[0].Type)
}

// gatedAuthorizations bloquea el primer Find hasta release y respeta la
// cancelación del ctx que recibe.
type gatedAuthorizations struct {
	repository.AuthorizationRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAuthorizations) Find(ctx context.Context, f repository.AuthorizationFilter) ([]repository.Authorization, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.AuthorizationRepository.Find(ctx, f)
}

func TestEnsurePermanent_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := newFixture(t)
	app := f.addClient(t, "web", types.ClientTypePublic, types.ConsentImplicit)
	gate := &gatedAuthorizations{
		AuthorizationRepository: f.st.Authorizations(),
		entered:                 make(chan struct{}),
		release:                 make(chan struct{}),
	}
	svc := NewAuthorizeService(Deps{
		Applications:   f.st.Applications(),
		Scopes:         f.st.Scopes(),
		Authorizations: gate,
		Tokens:         f.st.Tokens(),
		Issuer:         f.issuer,
	}).(*authorizeService)

	ar, rejected, err := svc.validate(context.Background(), authorizeRequest("web", "openid"))
	require.NoError(t, err)
	require.Nil(t, rejected)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ensurePermanent(ctxA, f.user.ID, ar)
		errA <- err
	}()
	<-gate.entered

	type result struct {
		authz *repository.Authorization
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		a, err := svc.ensurePermanent(context.Background(), f.user.ID, ar)
		resB <- result{a, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared creation")
	}
	close(gate.release)

	b := <-resB
	require.NoError(t, b.err)
	require.NotNil(t, b.authz)
	assert.Equal(t, app.ID, b.authz.ApplicationID)
	assert.Len(t, f.authorizations(t, app.ID), 1)
}
