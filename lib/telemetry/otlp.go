package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// exporterConfig is one signal's otlp destination. With neither endpoint
// set the http exporter reads the OTEL_EXPORTER_OTLP_* variables.
type exporterConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c exporterConfig) useGrpc() bool {
	return c.GrpcEndpoint != ""
}

func (c exporterConfig) log(signal string) {
	transport, endpoint := "http", c.HttpEndpoint
	if c.useGrpc() {
		transport, endpoint = "grpc", c.GrpcEndpoint
	}
	slog.Info(
		"otlp exporter initialized",
		"signal", signal,
		"type", transport,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
}

type config struct {
	Otlp struct {
		Traces  exporterConfig `json:"traces"`
		Metrics exporterConfig `json:"metrics"`
	} `json:"otlp"`
	// SampleRatio is the share of root traces kept, zero keeps all of them.
	SampleRatio float64 `json:"sample_ratio"`
	// MetricInterval is the export period in seconds, zero means 15.
	MetricInterval int `json:"metric_interval"`
}

func (c config) sampler() trace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func (c config) metricInterval() time.Duration {
	if c.MetricInterval <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.MetricInterval) * time.Second
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

const exporterTimeout = 3 * time.Second

func newSpanExporter(ctx context.Context, c exporterConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()
	c.log("traces")

	if c.useGrpc() {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(c.Headers)}
	if c.HttpEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(c.HttpEndpoint))
	}
	return otlptracehttp.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, c exporterConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()
	c.log("metrics")

	if c.useGrpc() {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithHeaders(c.Headers)}
	if c.HttpEndpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(c.HttpEndpoint))
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, c.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
		trace.WithSampler(c.sampler()),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, c.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(c.metricInterval()))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}
