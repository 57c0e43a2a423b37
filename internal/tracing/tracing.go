// Package tracing wires OpenTelemetry spans around evaluations.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServiceName is the name of the service in traces.
	ServiceName = "commutesim"
	// TracerName is the instrumentation scope of every span.
	TracerName = "github.com/rshade/commutesim"
	// EnvEndpoint enables OTLP export when set to a collector host:port.
	EnvEndpoint = "COMMUTESIM_OTLP_ENDPOINT"

	shutdownTimeout = 5 * time.Second
)

// Init installs an OTLP exporter when EnvEndpoint is set. Without it the
// global no-op provider stays in place and spans cost nothing.
func Init(ctx context.Context, version string) (func(context.Context) error, error) {
	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// StartSpan starts a span from the global provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err, if any, on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Attribute keys.
const (
	AttrRuns       = "commutesim.runs"
	AttrPopulation = "commutesim.population"
	AttrSeed       = "commutesim.seed"
	AttrRun        = "commutesim.run"
	AttrScenario   = "commutesim.scenario"
	AttrCacheHit   = "commutesim.cache.hit"
)

// EvaluationAttributes describes one evaluation.
func EvaluationAttributes(scenario string, runs, population int, seed uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrScenario, scenario),
		attribute.Int(AttrRuns, runs),
		attribute.Int(AttrPopulation, population),
		// uint64 seeds do not fit an int64 attribute.
		attribute.String(AttrSeed, strconv.FormatUint(seed, 10)),
	}
}
