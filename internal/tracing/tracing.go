// Package tracing bootstraps OpenTelemetry tracing for the platform,
// copied and generalized from the teacher's
// internal/observability/tracing/tracing.go: same OTLP-HTTP exporter and
// sampler shape, parameterized by the service name from internal/config
// rather than hardcoded, and instrumenting the Ingestion Pipeline (C6),
// Orchestrator (C12), and Petition Workflow (C13) call paths.
package tracing

import (
	"context"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Init configures a global TracerProvider with an OTLP HTTP exporter and
// returns a shutdown func. Safe to call with tracing effectively disabled
// (it still registers a provider; callers that never export spans pay no
// meaningful cost beyond the batcher's idle ticks).
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4318"
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint+"/v1/traces"))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("deployment.environment", os.Getenv("DEPLOY_ENV")),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(0.2))),
		trace.WithBatcher(exp,
			trace.WithMaxExportBatchSize(512),
			trace.WithBatchTimeout(5*time.Second),
		),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Printf("tracing initialized service=%s exporter=%s", serviceName, endpoint)
	return tp.Shutdown, nil
}

// Tracer returns the named tracer used by the ingest/orchestrator/petition
// packages to start their per-stage/per-step spans.
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}
