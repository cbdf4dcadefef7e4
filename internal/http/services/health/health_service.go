// Package health contiene el service de readiness.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/health"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Keys       *jwtx.KeySet
	StoreCheck func(ctx context.Context) error // crítico
	CacheCheck func(ctx context.Context) error // sesiones; no crítico
	Version    string
	Timeout    time.Duration
	Now        func() time.Time
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(d Deps) HealthService {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &healthService{deps: d}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  s.deps.Now().UTC(),
	}
	critical, degraded := false, false

	if s.deps.Keys != nil && s.deps.Keys.KID != "" {
		resp.ActiveKeyID = s.deps.Keys.KID
		resp.Components["keystore"] = dto.HealthStatus{Status: "ok"}
	} else {
		resp.Components["keystore"] = dto.HealthStatus{Status: "error", Message: "no active signing key"}
		critical = true
	}

	if s.deps.StoreCheck != nil {
		if err := s.deps.StoreCheck(ctx); err != nil {
			resp.Components["store"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			critical = true
			log.Error("store unavailable", logger.Err(err))
		} else {
			resp.Components["store"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		resp.Components["store"] = dto.HealthStatus{Status: "error", Message: "store not initialized"}
		critical = true
	}

	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			resp.Components["cache"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			degraded = true
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			resp.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		resp.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	switch {
	case critical:
		resp.Status = "unavailable"
	case degraded:
		resp.Status = "degraded"
	default:
		resp.Status = "ready"
	}
	return resp
}
