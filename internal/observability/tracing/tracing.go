// Package tracing configura el TracerProvider de OpenTelemetry.
// Sin endpoint se instala un provider noop.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

const instrumentationName = "github.com/dropDatabas3/hellojohn-oidc"

// Config del exporter OTLP/HTTP.
type Config struct {
	Endpoint    string  // host:port; vacío = noop
	Insecure    bool    // sin TLS (collector local)
	ServiceName string  // default "hellojohn-oidc"
	SampleRatio float64 // 0 o >=1 = siempre
}

// Provider envuelve el TracerProvider con su shutdown.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(ctx context.Context) error
}

// Enabled reporta si hay exporter real.
func (p *Provider) Enabled() bool {
	if p == nil {
		return false
	}
	_, ok := p.tp.(*sdktrace.TracerProvider)
	return ok
}

// Tracer devuelve el tracer del servicio.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return otel.Tracer(instrumentationName)
	}
	return p.tp.Tracer(instrumentationName)
}

// Shutdown hace flush del exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// New instala el provider global y el propagador W3C.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Endpoint == "" {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tp: tp, shutdown: func(context.Context) error { return nil }}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hellojohn-oidc"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)

	logger.L().Info("tracing enabled", logger.Component("tracing"), logger.String("endpoint", cfg.Endpoint))
	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}
