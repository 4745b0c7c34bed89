package observability

import (
	"fmt"
	"net/http"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// SetupPrometheusExporter creates a Prometheus reader and the mux that serves it
func SetupPrometheusExporter(cfg config.PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	// The exporter registers with the default registry, which promhttp serves.
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())
	return exporter, mux, nil
}

// StartPrometheusServer serves mux on port in the background
func StartPrometheusServer(mux *http.ServeMux, port string, logger *errors.Logger) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting Prometheus metrics server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "Prometheus server error")
		}
	}()

	return server
}
