// Package router arma el árbol de rutas chi del servidor.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	healthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/session"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	"github.com/dropDatabas3/hellojohn-oidc/internal/metrics"
)

const defaultMaxBody = 64 << 10

// Deps contiene todo lo que el router necesita.
type Deps struct {
	OAuth     *oauthctrl.Controllers
	Session   *sessionctrl.Controllers
	Discovery *oidcctrl.DiscoveryController
	JWKS      *oidcctrl.JWKSController
	Health    *healthctrl.HealthController

	// Sessions resuelve la cookie de sesión (WithSessionAuth).
	Sessions   mw.SessionResolver
	CookieName string

	Logger *zap.Logger

	// Gatherer habilita /metrics si no es nil.
	Gatherer prometheus.Gatherer

	// Tracing envuelve el árbol en otelhttp.
	Tracing bool

	MaxBodyBytes int64
}

// New construye el handler raíz.
func New(d Deps) http.Handler {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = defaultMaxBody
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(d.Logger),
		metrics.WithMetrics,
	)

	// ─── Infra ───
	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	// ─── Discovery ───
	if d.Discovery != nil {
		r.Get("/.well-known/openid-configuration", d.Discovery.Get)
		r.Head("/.well-known/openid-configuration", d.Discovery.Get)
	}
	if d.JWKS != nil {
		r.Get("/.well-known/jwks.json", d.JWKS.Get)
		r.Head("/.well-known/jwks.json", d.JWKS.Get)
	}

	// ─── /connect ───
	r.Route("/connect", func(r chi.Router) {
		r.Use(
			mw.WithMaxBody(d.MaxBodyBytes),
			mw.WithNoStore(),
		)

		if d.OAuth != nil {
			// token/introspect/revoke: autenticación de cliente, sin cookie
			r.Post("/token", d.OAuth.Token.Token)
			r.Post("/introspect", d.OAuth.Introspect.Introspect)
			r.Post("/revoke", d.OAuth.Revoke.Revoke)
		}

		r.Group(func(r chi.Router) {
			if d.Sessions != nil {
				r.Use(mw.WithSessionAuth(d.Sessions, d.CookieName))
			}

			if d.OAuth != nil {
				r.Get("/authorize", d.OAuth.Authorize.Authorize)
				r.Post("/authorize", d.OAuth.Authorize.Authorize)

				r.With(mw.RequireSession()).Post("/authorize/accept", d.OAuth.Authorize.Accept)
				r.With(mw.RequireSession()).Post("/authorize/deny", d.OAuth.Authorize.Deny)
			}

			if d.Session != nil {
				r.Post("/login", d.Session.Login.Login)
				r.Get("/logout", d.Session.Logout.Logout)
				r.Post("/logout", d.Session.Logout.Logout)
			}
		})
	})

	if !d.Tracing {
		return r
	}
	return otelhttp.NewHandler(r, "hellojohn-oidc",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
