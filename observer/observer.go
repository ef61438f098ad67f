// Package observer provides OTEL-based observability for scan runs.
//
// It bridges the scan event bus into OpenTelemetry metrics and log records.
// Users export to any OTEL-compatible backend by setting standard OTEL env
// vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/strix/observer"

// Instruments holds all OTEL instruments used by the event bridge.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	ScansStarted   metric.Int64Counter
	ScansCompleted metric.Int64Counter
	TaskExecutions metric.Int64Counter
	AssetsFound    metric.Int64Counter
	FindingsFound  metric.Int64Counter

	// Histograms
	TaskDuration metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("strix")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	scansStarted, err := meter.Int64Counter("scan.started",
		metric.WithDescription("Scans started"),
		metric.WithUnit("{scan}"))
	if err != nil {
		return nil, err
	}

	scansCompleted, err := meter.Int64Counter("scan.completed",
		metric.WithDescription("Scans completed"),
		metric.WithUnit("{scan}"))
	if err != nil {
		return nil, err
	}

	taskExecutions, err := meter.Int64Counter("task.executions",
		metric.WithDescription("Task executions by tool and outcome"),
		metric.WithUnit("{execution}"))
	if err != nil {
		return nil, err
	}

	assetsFound, err := meter.Int64Counter("assets.discovered",
		metric.WithDescription("Assets discovered by type"),
		metric.WithUnit("{asset}"))
	if err != nil {
		return nil, err
	}

	findingsFound, err := meter.Int64Counter("findings.discovered",
		metric.WithDescription("Findings discovered by severity"),
		metric.WithUnit("{finding}"))
	if err != nil {
		return nil, err
	}

	taskDuration, err := meter.Float64Histogram("task.duration",
		metric.WithDescription("Task execution duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:         tracer,
		Meter:          meter,
		Logger:         logger,
		ScansStarted:   scansStarted,
		ScansCompleted: scansCompleted,
		TaskExecutions: taskExecutions,
		AssetsFound:    assetsFound,
		FindingsFound:  findingsFound,
		TaskDuration:   taskDuration,
	}, nil
}
