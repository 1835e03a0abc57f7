// ABOUTME: Aggregate metrics registry and HTTP exposition
// ABOUTME: Owns the Prometheus registry and the /metrics handler
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics holds all metric collectors for a streaming server.
type Metrics struct {
	registry *prometheus.Registry
	Stream   *StreamMetrics
}

// NewMetrics creates the registry and the always-on collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	streamMetrics, err := NewStreamMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Stream:   streamMetrics,
	}, nil
}

// ObserveEngine attaches an engine collector that reads counters at
// scrape time.
func (m *Metrics) ObserveEngine(stats EngineStatsFunc) error {
	_, err := NewEngineCollector(m.registry, stats)
	return err
}

// RegisterHandlers registers the metrics endpoint on the provided mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.StandardLogger(),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
