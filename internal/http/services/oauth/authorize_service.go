package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// AuthorizeService es el motor de decisión de /connect/authorize.
//
// Los errores retornados son *oauth.Error cuando el request no es
// redirigible (client_id o redirect_uri inválidos) o fatales en cualquier
// otro caso. Los rechazos redirigibles vuelven como AuthResultError.
type AuthorizeService interface {
	Authorize(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error)
	// Accept registra el consentimiento explícito y emite el código.
	Accept(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error)
	// Deny responde access_denied sin más detalle.
	Deny(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error)
}

type authorizeService struct {
	apps           repository.ApplicationRepository
	scopes         repository.ScopeRepository
	authorizations repository.AuthorizationRepository
	directory      identity.Directory
	issuer         *jwtx.Issuer
	opts           Options
	group          singleflight.Group
}

// NewAuthorizeService crea el motor de autorización.
func NewAuthorizeService(d Deps) AuthorizeService {
	if d.Options.Now == nil {
		d.Options.Now = time.Now
	}
	if d.Options.LoginURL == "" {
		d.Options.LoginURL = "/connect/login"
	}
	return &authorizeService{
		apps:           d.Applications,
		scopes:         d.Scopes,
		authorizations: d.Authorizations,
		directory:      d.Directory,
		issuer:         d.Issuer,
		opts:           d.Options,
	}
}

// authzRequest es el request validado.
type authzRequest struct {
	raw    dto.AuthorizeRequest
	app    *repository.Application
	scopes []string
	prompt promptSet
	method string // code_challenge_method efectivo
}

func (s *authorizeService) Authorize(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Authorize"), logger.ClientID(req.ClientID))

	ar, rejected, err := s.validate(ctx, req)
	if err != nil || rejected != nil {
		return deref(rejected), err
	}

	// 1. sesión
	if subject == "" || ar.prompt.Has(promptLogin) {
		return s.challenge(ctx, ar), nil
	}
	user, err := s.directory.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return dto.AuthResult{}, fmt.Errorf("%w: user %q of the session cannot be retrieved", ErrPrecondition, subject)
		}
		return dto.AuthResult{}, fmt.Errorf("authorize: find user: %w", err)
	}
	if !s.directory.CanSignIn(ctx, user) {
		log.Debug("session user can no longer sign in", logger.Subject(subject))
		return s.challenge(ctx, ar), nil
	}
	log = log.With(logger.Subject(subject))
	log.Debug("decision", logger.Decision(StateAuthenticatedNoConsent.String()))

	// 2-3. records permanentes válidos que cubren los scopes pedidos
	matching, err := s.findPermanent(ctx, subject, ar)
	if err != nil {
		return dto.AuthResult{}, err
	}

	// 4. rama por consent type
	switch ar.app.ConsentType {
	case types.ConsentExternal:
		if len(matching) == 0 {
			return s.deny(ctx, ar, oauth.ConsentRequired("The logged in user is not allowed to access this client application.")), nil
		}
		return s.signIn(ctx, ar, user, matching)

	case types.ConsentImplicit:
		return s.signIn(ctx, ar, user, matching)

	case types.ConsentExplicit:
		if len(matching) > 0 && !ar.prompt.Has(promptConsent) {
			return s.signIn(ctx, ar, user, matching)
		}
		return s.requireConsent(ctx, ar), nil

	case types.ConsentSystematic:
		return s.requireConsent(ctx, ar), nil

	default:
		return dto.AuthResult{}, fmt.Errorf("%w: unknown consent type %d for client %q", ErrPrecondition, ar.app.ConsentType, ar.app.ClientID)
	}
}

func (s *authorizeService) Accept(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Accept"), logger.ClientID(req.ClientID), logger.Subject(subject))

	ar, rejected, err := s.validate(ctx, req)
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	if subject == "" {
		return dto.AuthResult{}, fmt.Errorf("%w: accept without authenticated subject", ErrPrecondition)
	}
	user, err := s.directory.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return dto.AuthResult{}, fmt.Errorf("%w: user %q of the session cannot be retrieved", ErrPrecondition, subject)
		}
		return dto.AuthResult{}, fmt.Errorf("accept: find user: %w", err)
	}
	if !s.directory.CanSignIn(ctx, user) {
		log.Debug("session user can no longer sign in")
		return s.challenge(ctx, ar), nil
	}

	// un cliente external sólo acepta consentimientos otorgados por un admin
	if ar.app.ConsentType == types.ConsentExternal {
		matching, err := s.findPermanent(ctx, subject, ar)
		if err != nil {
			return dto.AuthResult{}, err
		}
		if len(matching) == 0 {
			return s.deny(ctx, ar, oauth.ConsentRequired("The logged in user is not allowed to access this client application.")), nil
		}
	}

	// el usuario acaba de consentir: siempre un record nuevo
	authz, err := s.createPermanent(ctx, subject, ar)
	if err != nil {
		return dto.AuthResult{}, err
	}
	audit.Log(ctx, audit.EventConsentGranted, logger.Subject(subject), logger.ClientID(ar.app.ClientID),
		logger.AuthorizationID(authz.ID), logger.Scopes(ar.scopes))
	log.Debug("consent accepted", logger.AuthorizationID(authz.ID))
	return s.issueCode(ctx, ar, user, authz)
}

func (s *authorizeService) Deny(ctx context.Context, req dto.AuthorizeRequest, subject string) (dto.AuthResult, error) {
	ar, rejected, err := s.validate(ctx, req)
	if err != nil || rejected != nil {
		return deref(rejected), err
	}
	audit.Log(ctx, audit.EventConsentDenied, logger.Subject(subject), logger.ClientID(ar.app.ClientID))
	return s.deny(ctx, ar, oauth.AccessDenied()), nil
}

// ─── transiciones ───

// challenge: prompt=none termina en login_required; si no, redirect al login
// con el request original (sin prompt=login) como return_to.
func (s *authorizeService) challenge(ctx context.Context, ar *authzRequest) dto.AuthResult {
	if ar.prompt.Has(promptNone) {
		return s.deny(ctx, ar, oauth.LoginRequired("The user is not logged in."))
	}
	back := ar.raw
	if ar.prompt.Has(promptLogin) {
		var rest []string
		for _, p := range strings.Fields(back.Prompt) {
			if p != promptLogin {
				rest = append(rest, p)
			}
		}
		back.Prompt = strings.Join(rest, " ")
	}
	returnTo := "/connect/authorize?" + back.Values().Encode()
	sep := "?"
	if strings.Contains(s.opts.LoginURL, "?") {
		sep = "&"
	}
	metrics.AuthorizeDecisions.WithLabelValues(StateUnauthenticated.String()).Inc()
	return dto.AuthResult{
		Type:     dto.AuthResultNeedLogin,
		LoginURL: s.opts.LoginURL + sep + "return_to=" + url.QueryEscape(returnTo),
	}
}

func (s *authorizeService) requireConsent(ctx context.Context, ar *authzRequest) dto.AuthResult {
	if ar.prompt.Has(promptNone) {
		return s.deny(ctx, ar, oauth.ConsentRequired("Interactive user consent is required."))
	}
	logger.From(ctx).Debug("consent required", logger.Decision(StateConsentRequired.String()), logger.ClientID(ar.app.ClientID))
	metrics.AuthorizeDecisions.WithLabelValues(StateConsentRequired.String()).Inc()
	return dto.AuthResult{
		Type: dto.AuthResultConsent,
		Consent: &dto.ConsentPrompt{
			Status:      "consent_required",
			Application: ar.app.DisplayName,
			ClientID:    ar.app.ClientID,
			Scopes:      ar.scopes,
			AcceptURL:   "/connect/authorize/accept",
			DenyURL:     "/connect/authorize/deny",
			Request:     ar.raw,
		},
		RedirectURI: ar.raw.RedirectURI,
		State:       ar.raw.State,
	}
}

func (s *authorizeService) deny(ctx context.Context, ar *authzRequest, e *oauth.Error) dto.AuthResult {
	logger.From(ctx).Debug("authorization denied", logger.Decision(StateDenied.String()), logger.String("error", e.Code))
	metrics.AuthorizeDecisions.WithLabelValues(StateDenied.String()).Inc()
	return errorResult(ar.raw, e)
}

// signIn reutiliza el record más reciente o crea uno permanente si no hay.
func (s *authorizeService) signIn(ctx context.Context, ar *authzRequest, user *repository.User, matching []repository.Authorization) (dto.AuthResult, error) {
	logger.From(ctx).Debug("consent satisfied", logger.Decision(StateConsentSatisfied.String()))
	var authz *repository.Authorization
	if len(matching) > 0 {
		authz = &matching[0]
		audit.Log(ctx, audit.EventAuthorizationReuse, logger.Subject(user.ID), logger.AuthorizationID(authz.ID))
	} else {
		var err error
		if authz, err = s.ensurePermanent(ctx, user.ID, ar); err != nil {
			return dto.AuthResult{}, err
		}
	}
	return s.issueCode(ctx, ar, user, authz)
}

// issueCode arma el principal con la política por scopes y emite el código.
func (s *authorizeService) issueCode(ctx context.Context, ar *authzRequest, user *repository.User, authz *repository.Authorization) (dto.AuthResult, error) {
	p := buildUserPrincipal(user)
	p.AuthorizationID = authz.ID
	// el código persiste sólo subject y scopes; /token vuelve a proyectar con DirectGrant
	if err := attachScopes(ctx, s.scopes, p, ar.scopes, claims.Scoped); err != nil {
		return dto.AuthResult{}, err
	}
	code, err := s.issuer.IssueAuthorizationCode(ctx, ar.app, p, jwtx.CodeRequest{
		RedirectURI:         ar.raw.RedirectURI,
		CodeChallenge:       ar.raw.CodeChallenge,
		CodeChallengeMethod: ar.method,
		Nonce:               ar.raw.Nonce,
	})
	if err != nil {
		return dto.AuthResult{}, fmt.Errorf("issue authorization code: %w", err)
	}
	metrics.AuthorizeDecisions.WithLabelValues(StateSignedIn.String()).Inc()
	logger.From(ctx).Info("authorization code issued", logger.Decision(StateSignedIn.String()),
		logger.Subject(user.ID), logger.ClientID(ar.app.ClientID), logger.AuthorizationID(authz.ID))
	return dto.AuthResult{
		Type:        dto.AuthResultSuccess,
		Code:        code,
		RedirectURI: ar.raw.RedirectURI,
		State:       ar.raw.State,
	}, nil
}

// ─── authorization records ───

func (s *authorizeService) findPermanent(ctx context.Context, subject string, ar *authzRequest) ([]repository.Authorization, error) {
	all, err := s.authorizations.Find(ctx, repository.AuthorizationFilter{
		Subject:       subject,
		ApplicationID: ar.app.ID,
		Status:        types.StatusValid,
		Type:          types.AuthorizationPermanent,
	})
	if err != nil {
		return nil, fmt.Errorf("find authorizations: %w", err)
	}
	out := all[:0]
	for _, a := range all {
		if a.CoversScopes(ar.scopes) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *authorizeService) createPermanent(ctx context.Context, subject string, ar *authzRequest) (*repository.Authorization, error) {
	a := &repository.Authorization{
		Subject:       subject,
		ApplicationID: ar.app.ID,
		Type:          types.AuthorizationPermanent,
		Status:        types.StatusValid,
		Scopes:        ar.scopes,
		CreatedAt:     s.opts.Now().UTC(),
	}
	if err := s.authorizations.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create authorization: %w", err)
	}
	return a, nil
}

// ensurePermanent es find-then-create. Requests concurrentes del mismo
// proceso para (subject, client, scopes) comparten una sola creación; entre
// procesos se toleran duplicados. La creación compartida no hereda la
// cancelación de quien la inició: cada request espera con su propio ctx.
func (s *authorizeService) ensurePermanent(ctx context.Context, subject string, ar *authzRequest) (*repository.Authorization, error) {
	sorted := slices.Clone(ar.scopes)
	slices.Sort(sorted)
	key := subject + "|" + ar.app.ID + "|" + strings.Join(sorted, " ")

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		matching, err := s.findPermanent(shared, subject, ar)
		if err != nil {
			return nil, err
		}
		if len(matching) > 0 {
			return &matching[0], nil
		}
		return s.createPermanent(shared, subject, ar)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// copia: el resultado es compartido entre los requests del flight
		a := *res.Val.(*repository.Authorization)
		return &a, nil
	}
}

// ─── validación ───

// validate retorna un *oauth.Error (no redirigible) en err, o un resultado
// de error redirigible en rejected.
func (s *authorizeService) validate(ctx context.Context, req dto.AuthorizeRequest) (*authzRequest, *dto.AuthResult, error) {
	if req.ClientID == "" {
		return nil, nil, oauth.InvalidRequest("The mandatory 'client_id' parameter is missing.")
	}
	app, err := s.apps.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, oauth.InvalidClient("The specified 'client_id' is invalid.")
		}
		return nil, nil, fmt.Errorf("authorize: lookup client: %w", err)
	}
	if req.RedirectURI == "" {
		return nil, nil, oauth.InvalidRequest("The mandatory 'redirect_uri' parameter is missing.")
	}
	if !app.HasRedirectURI(req.RedirectURI) {
		return nil, nil, oauth.InvalidRequest("The specified 'redirect_uri' is not valid for this client application.")
	}

	// desde acá los errores vuelven al cliente por redirect
	reject := func(e *oauth.Error) (*authzRequest, *dto.AuthResult, error) {
		r := errorResult(req, e)
		metrics.AuthorizeDecisions.WithLabelValues(StateDenied.String()).Inc()
		return nil, &r, nil
	}

	if !app.HasPermission(types.PermissionPrefixEndpoint + types.PermissionEndpointAuthorization) {
		return reject(oauth.UnauthorizedClient("This client application is not allowed to use the authorization endpoint."))
	}
	if req.ResponseType == "" {
		return reject(oauth.InvalidRequest("The mandatory 'response_type' parameter is missing."))
	}
	if req.ResponseType != "code" {
		return reject(oauth.UnsupportedResponseType("The specified 'response_type' parameter is not supported."))
	}
	if !app.HasPermission(types.PermissionPrefixGrantType + types.GrantTypeAuthorizationCode) {
		return reject(oauth.UnauthorizedClient("This client application is not allowed to use the authorization code flow."))
	}

	scopes, err := resolveScopes(ctx, s.scopes, app, req.Scope)
	if err != nil {
		if oe, ok := oauth.As(err); ok {
			return reject(oe)
		}
		return nil, nil, err
	}

	prompt, perr := parsePrompt(req.Prompt)
	if perr != nil {
		return reject(perr)
	}

	method := req.CodeChallengeMethod
	switch {
	case req.CodeChallenge == "" && method != "":
		return reject(oauth.InvalidRequest("The 'code_challenge_method' parameter cannot be used without 'code_challenge'."))
	case req.CodeChallenge != "" && method == "":
		method = "plain"
	case req.CodeChallenge != "" && method != "S256" && method != "plain":
		return reject(oauth.InvalidRequest("The specified 'code_challenge_method' parameter is not supported."))
	}
	if req.CodeChallenge == "" && s.opts.RequirePKCE && !app.IsConfidential() {
		return reject(oauth.InvalidRequest("The mandatory 'code_challenge' parameter is missing."))
	}

	return &authzRequest{raw: req, app: app, scopes: scopes, prompt: prompt, method: method}, nil, nil
}

// parsePrompt: none no se combina con ningún otro valor.
func parsePrompt(raw string) (promptSet, *oauth.Error) {
	set := promptSet{}
	for _, p := range strings.Fields(raw) {
		switch p {
		case promptNone, promptLogin, promptConsent, promptSelectAccount:
			set[p] = struct{}{}
		default:
			return nil, oauth.InvalidRequest(fmt.Sprintf("The specified 'prompt' value '%s' is not supported.", p))
		}
	}
	if set.Has(promptNone) && len(set) > 1 {
		return nil, oauth.InvalidRequest("The 'prompt' value 'none' cannot be combined with other values.")
	}
	return set, nil
}

func errorResult(req dto.AuthorizeRequest, e *oauth.Error) dto.AuthResult {
	return dto.AuthResult{
		Type:             dto.AuthResultError,
		ErrorCode:        e.Code,
		ErrorDescription: e.Description,
		RedirectURI:      req.RedirectURI,
		State:            req.State,
	}
}

func deref(r *dto.AuthResult) dto.AuthResult {
	if r == nil {
		return dto.AuthResult{}
	}
	return *r
}
