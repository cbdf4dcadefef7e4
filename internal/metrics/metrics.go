// Package metrics define los collectors Prometheus del servidor. Vive aparte
// para que services y middlewares los usen sin ciclos de import.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ─── HTTP ───

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método y ruta",
	}, []string{"method", "path"})

	// ─── OAuth / OIDC ───

	// GrantOutcomes cuenta resultados del token endpoint. outcome: signin|forbid|not_implemented|error.
	GrantOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oidc_grant_outcomes_total",
		Help: "Resultados del token endpoint por grant type",
	}, []string{"grant", "outcome"})

	// AuthorizeDecisions cuenta estados terminales de /connect/authorize.
	AuthorizeDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oidc_authorize_decisions_total",
		Help: "Estados terminales del motor de autorización",
	}, []string{"state"})

	// TokensRevoked cuenta revocaciones. kind: direct|cascade|replay.
	TokensRevoked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oidc_tokens_revoked_total",
		Help: "Tokens revocados por tipo de revocación",
	}, []string{"kind"})

	// Introspections cuenta introspecciones por resultado.
	Introspections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oidc_introspections_total",
		Help: "Introspecciones por resultado active",
	}, []string{"active"})
)

// Register registra todos los collectors (default registry si reg es nil).
// Es idempotente.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		httpRequestsTotal, httpRequestDuration, httpInflight,
		GrantOutcomes, AuthorizeDecisions, TokensRevoked, Introspections,
	} {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// Handler expone /metrics sobre el gatherer dado (default si es nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// registerCollector registra el collector ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithMetrics instrumenta requests HTTP (contador, latencia, inflight).
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpInflight.WithLabelValues(method, pathLabel).Dec()
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// normalizePath reemplaza segmentos dinámicos por ":param" para acotar la cardinalidad.
func normalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if uuidSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
			seg = ":param"
		}
		out = append(out, seg)
	}
	return "/" + strings.Join(out, "/")
}
