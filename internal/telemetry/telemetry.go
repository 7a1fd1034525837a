// Package telemetry wires OpenTelemetry traces and metrics.
//
// Telemetry is off unless stdout export or an OTLP endpoint is configured;
// in that case no-op providers are installed.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/gi8lino/jiramirror"

// Config selects exporters.
type Config struct {
	ServiceName  string
	Version      string
	Stdout       bool
	Writer       io.Writer // stdout exporter target; defaults to os.Stderr
	OTLPEndpoint string    // OTLP/HTTP metrics endpoint URL
}

// Enabled reports whether any exporter is configured.
func (c Config) Enabled() bool {
	return c.Stdout || c.OTLPEndpoint != ""
}

// Telemetry holds the active providers.
type Telemetry struct {
	enabled     bool
	tracer      trace.Tracer
	meter       metric.Meter
	shutdownFns []func(context.Context) error
}

// Init configures OTel providers and installs them globally.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled() {
		tp := tracenoop.NewTracerProvider()
		mp := metricnoop.NewMeterProvider()
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		return &Telemetry{
			tracer: tp.Tracer(instrumentationScope),
			meter:  mp.Meter(instrumentationScope),
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	tp, err := buildTraceProvider(res, cfg, w)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := buildMetricProvider(ctx, res, cfg, w)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Telemetry{
		enabled:     true,
		tracer:      tp.Tracer(instrumentationScope),
		meter:       mp.Meter(instrumentationScope),
		shutdownFns: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}, nil
}

// NewWithProviders builds a Telemetry around caller-owned providers.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	return &Telemetry{
		enabled: true,
		tracer:  tp.Tracer(instrumentationScope),
		meter:   mp.Meter(instrumentationScope),
	}
}

// Noop returns a disabled Telemetry.
func Noop() *Telemetry {
	return &Telemetry{
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationScope),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationScope),
	}
}

// Enabled reports whether exporters are active.
func (t *Telemetry) Enabled() bool { return t.enabled }

// Tracer returns the service tracer.
func (t *Telemetry) Tracer() trace.Tracer { return t.tracer }

// Meter returns the service meter.
func (t *Telemetry) Meter() metric.Meter { return t.meter }

// Shutdown flushes and stops all providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdownFns {
		errs = append(errs, fn(ctx))
	}
	t.shutdownFns = nil
	return errors.Join(errs...)
}

func buildTraceProvider(res *resource.Resource, cfg Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func buildMetricProvider(ctx context.Context, res *resource.Resource, cfg Config, w io.Writer) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Stdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	if cfg.OTLPEndpoint != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}
