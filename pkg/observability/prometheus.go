package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ErrNoRegistry is returned when a textfile is requested but metrics were
// initialized without a Prometheus registry.
var ErrNoRegistry = errors.New("prometheus registry not initialized")

// newPrometheusReader creates a fresh registry and an OTel reader that
// exports into it. Each call is independent, so repeated Init calls never
// hit duplicate collector registrations.
func newPrometheusReader() (*prometheus.Registry, sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return registry, exporter, nil
}

// WritePrometheusTextfile writes everything gathered by registry to path in
// the text exposition format read by node_exporter's textfile collector. The
// file is replaced atomically.
func WritePrometheusTextfile(path string, registry *prometheus.Registry) error {
	if registry == nil {
		return ErrNoRegistry
	}

	err := prometheus.WriteToTextfile(path, registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
