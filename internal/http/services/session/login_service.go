package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/util"
)

var (
	ErrMissingCredentials = errors.New("login and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("user locked out")
	ErrNotAllowed         = errors.New("user not allowed to sign in")
	ErrInvalidReturnTo    = errors.New("return_to must be a relative path")
)

// LoginService autentica usuario/password y abre una sesión por cookie.
type LoginService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResult, error)
}

// LoginDeps contiene las dependencias del login.
type LoginDeps struct {
	Store     Store
	Directory identity.Directory
	TTL       time.Duration
	Now       func() time.Time
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService crea el service de login.
func NewLoginService(d LoginDeps) LoginService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &loginService{deps: d}
}

func (s *loginService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("session.login"), logger.Op("Login"))

	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	returnTo, err := sanitizeReturnTo(req.ReturnTo)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Directory.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.deps.Directory.RejectUnknownLogin(ctx, req.Password)
			log.Debug("unknown login", logger.String("login", util.MaskLogin(login)))
			audit.Log(ctx, audit.EventLoginFailed, logger.String("reason", "credentials"))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: find user: %w", err)
	}

	res, err := s.deps.Directory.CheckPasswordSignIn(ctx, user, req.Password)
	if err != nil {
		return nil, fmt.Errorf("login: check password: %w", err)
	}
	switch res {
	case identity.SignInSucceeded:
	case identity.SignInLockedOut:
		audit.Log(ctx, audit.EventLoginFailed, logger.Subject(user.ID), logger.String("reason", res.String()))
		return nil, ErrLockedOut
	case identity.SignInNotAllowed:
		audit.Log(ctx, audit.EventLoginFailed, logger.Subject(user.ID), logger.String("reason", res.String()))
		return nil, ErrNotAllowed
	default:
		audit.Log(ctx, audit.EventLoginFailed, logger.Subject(user.ID), logger.String("reason", res.String()))
		return nil, ErrInvalidCredentials
	}

	now := s.deps.Now().UTC()
	exp := now.Add(s.deps.TTL)
	sid, err := s.deps.Store.Create(ctx, dto.SessionPayload{Subject: user.ID, AuthTime: now, Expires: exp})
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.EventLoginSucceeded, logger.Subject(user.ID))
	log.Info("session created", logger.Subject(user.ID))
	return &dto.LoginResult{SessionID: sid, Subject: user.ID, ExpiresAt: exp, ReturnTo: returnTo}, nil
}

// sanitizeReturnTo acepta sólo paths relativos al propio servidor.
func sanitizeReturnTo(raw string) (string, error) {
	if raw == "" {
		return "/", nil
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return "", ErrInvalidReturnTo
	}
	return raw, nil
}
