package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OtlpConnConfig points a signal at a collector, grpc wins when both
// endpoints are set.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) configured() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// SampleRatio is the share of fetches that are traced, 0 means all of
	// them.
	SampleRatio float64 `json:"sample_ratio"`
	// MetricInterval is a go duration, defaults to 15s.
	MetricInterval string `json:"metric_interval"`
}

func (c Config) sampler() trace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func (c Config) metricInterval() (time.Duration, error) {
	if c.MetricInterval == "" {
		return 15 * time.Second, nil
	}
	interval, err := time.ParseDuration(c.MetricInterval)
	if err != nil {
		return 0, fmt.Errorf("metric interval: %w", err)
	}
	return interval, nil
}

// Telemetry holds the providers created by Setup, either may be nil if it
// was not configured.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// Shutdown flushes whatever is still buffered.
func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Setup installs OTLP trace and metric providers globally, signals without an
// endpoint are left on the otel no-op defaults.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, fmt.Errorf("otel resource: %w", err)
	}

	var tel Telemetry
	if config.Otlp.Traces.configured() {
		exporter, err := traceExporter(ctx, config.Otlp.Traces)
		if err != nil {
			return Telemetry{}, fmt.Errorf("trace exporter: %w", err)
		}
		tel.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
			trace.WithSampler(config.sampler()),
		)
		otel.SetTracerProvider(tel.TracerProvider)
	}

	if config.Otlp.Metrics.configured() {
		interval, err := config.metricInterval()
		if err != nil {
			tel.Shutdown(ctx)
			return Telemetry{}, err
		}
		exporter, err := metricExporter(ctx, config.Otlp.Metrics)
		if err != nil {
			tel.Shutdown(ctx)
			return Telemetry{}, fmt.Errorf("metric exporter: %w", err)
		}
		tel.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(tel.MeterProvider)
	}

	return tel, nil
}

func traceExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	if conn.GrpcEndpoint != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.HttpEndpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
}

func metricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	if conn.GrpcEndpoint != "" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(conn.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.HttpEndpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
}
