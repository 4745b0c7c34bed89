package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"
	"candidaterank/internal/scoring"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the process-wide tracer and meter providers
type Manager struct {
	config         config.ObservabilityConfig
	logger         *errors.Logger
	resource       *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *RankingMetrics
	promServer     *http.Server
	shutdownFuncs  []func(context.Context) error
}

// NewManager installs global OpenTelemetry providers built from cfg. A
// disabled configuration yields a manager whose tracer and middleware are no-ops.
func NewManager(cfg config.ObservabilityConfig, version string, logger *errors.Logger) (*Manager, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version
	}

	m := &Manager{config: cfg, logger: logger}
	if !cfg.Enabled {
		return m, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("service.instance.id", cfg.ServiceInstance),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	m.resource = res

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

func (m *Manager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.config.ConsoleOutput:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case m.config.OTLP.Enabled:
		exporter, err = m.createOTLPTraceExporter()
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(m.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(m.config.SampleRate))),
	}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics() error {
	readers, err := m.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(m.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	if !m.config.Metrics.Enabled {
		return nil
	}

	metrics, err := NewRankingMetrics(mp.Meter(m.config.ServiceName))
	if err != nil {
		return err
	}
	m.metrics = metrics
	return nil
}

func (m *Manager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := m.collectionInterval()

	if m.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.config.OTLP.Enabled {
		reader, err := m.createOTLPMetricsReader(interval)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if m.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(m.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		m.promServer = StartPrometheusServer(mux, m.config.Prometheus.Port, m.logger)
	}

	// Instruments still need a reader when nothing exports
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (m *Manager) createOTLPTraceExporter() (trace.SpanExporter, error) {
	otlp := m.config.OTLP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) createOTLPMetricsReader(interval time.Duration) (sdkmetric.Reader, error) {
	otlp := m.config.OTLP
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

func (m *Manager) collectionInterval() time.Duration {
	if m.config.Metrics.CollectionInterval > 0 {
		return m.config.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// Recorder returns the ranking metrics, or nil when metrics are disabled
func (m *Manager) Recorder() scoring.Recorder {
	if m.metrics == nil {
		return nil
	}
	return m.metrics
}

// Metrics returns the ranking instruments. It may be nil.
func (m *Manager) Metrics() *RankingMetrics {
	return m.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		m.config.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes exporters and stops the metrics endpoint
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.promServer != nil {
		if err := m.promServer.Shutdown(ctx); err != nil {
			m.logger.LogError(err, "Failed to stop Prometheus server")
		}
	}
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
