// Package app arma el servidor a partir de la configuración y los recursos
// ya abiertos (store, cache, claves).
package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	healthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/session"
	sessiondto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/router"
	healthsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/health"
	oauthsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	oidcsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	sessionsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/identity"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
)

// Deps son los recursos que el caller abre y cierra.
type Deps struct {
	Config *config.Config
	Store  store.Connection
	Cache  cache.Client
	Keys   *jwtx.KeySet
	Logger *zap.Logger

	// Registry recibe los collectors; nil = métricas deshabilitadas.
	Registry *prometheus.Registry
	// Tracing envuelve el handler en otelhttp.
	Tracing bool
	Now     func() time.Time
}

// App es el servidor cableado.
type App struct {
	Handler http.Handler
	Issuer  *jwtx.Issuer
}

// New crea y cablea la aplicación.
func New(d Deps) (*App, error) {
	if d.Config == nil || d.Store == nil || d.Cache == nil || d.Keys == nil {
		return nil, errors.New("app: config, store, cache and keys are required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config

	// 1. Issuer
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, d.Keys, d.Store.Tokens(), d.Store.Authorizations())
	issuer.AccessTTL = cfg.JWT.AccessTTL
	issuer.IDTokenTTL = cfg.JWT.IDTokenTTL
	issuer.RefreshTTL = cfg.JWT.RefreshTTL
	issuer.CodeTTL = cfg.JWT.CodeTTL
	issuer.Now = d.Now

	directory := identity.NewDirectory(identity.Deps{
		Users: d.Store.Users(),
		Lockout: identity.LockoutOptions{
			MaxFailedAttempts: cfg.Auth.Lockout.MaxFailedAttempts,
			Duration:          cfg.Auth.Lockout.Duration,
		},
		Now: d.Now,
	})

	// 2. Services
	grants := cfg.Auth.GrantTypes
	if len(grants) == 0 {
		grants = oauthsvc.DefaultGrantTypes
	}
	oauthSvcs := oauthsvc.NewServices(oauthsvc.Deps{
		Applications:   d.Store.Applications(),
		Scopes:         d.Store.Scopes(),
		Authorizations: d.Store.Authorizations(),
		Tokens:         d.Store.Tokens(),
		Directory:      directory,
		Issuer:         issuer,
		Options: oauthsvc.Options{
			LoginURL:    cfg.Auth.LoginURL,
			RequirePKCE: cfg.Auth.RequirePKCE,
			GrantTypes:  grants,
			Now:         d.Now,
		},
	})

	cookie := sessiondto.CookieConfig{
		Name:     cfg.Auth.Session.CookieName,
		Domain:   cfg.Auth.Session.Domain,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
		TTL:      cfg.Auth.Session.TTL,
	}
	sessSvcs := sessionsvc.NewServices(sessionsvc.Deps{
		Cache:        d.Cache,
		Directory:    directory,
		Applications: d.Store.Applications(),
		Issuer:       issuer,
		Cookie:       cookie,
		Now:          d.Now,
	})

	health := healthsvc.NewHealthService(healthsvc.Deps{
		Keys:       d.Keys,
		StoreCheck: d.Store.Ping,
		CacheCheck: d.Cache.Ping,
		Version:    cfg.App.Version,
		Now:        d.Now,
	})

	// 3. Métricas
	var gatherer prometheus.Gatherer
	if d.Registry != nil {
		if err := metrics.Register(d.Registry); err != nil {
			return nil, err
		}
		gatherer = d.Registry
	}

	// 4. Rutas
	h := router.New(router.Deps{
		OAuth:     oauthctrl.NewControllers(oauthSvcs),
		Session:   sessionctrl.NewControllers(sessSvcs, cookie),
		Discovery: oidcctrl.NewDiscoveryController(oidcsvc.NewDiscoveryService(oidcsvc.Deps{Issuer: cfg.JWT.Issuer, Keys: d.Keys, GrantTypes: grants})),
		JWKS:      oidcctrl.NewJWKSController(oidcsvc.NewJWKSService(d.Keys)),
		Health:    healthctrl.NewHealthController(health),

		Sessions:     sessSvcs.Store,
		CookieName:   cookie.Name,
		Logger:       d.Logger,
		Gatherer:     gatherer,
		Tracing:      d.Tracing,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	return &App{Handler: h, Issuer: issuer}, nil
}
