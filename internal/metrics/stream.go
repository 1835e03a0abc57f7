// ABOUTME: Prometheus collectors for the streaming path
// ABOUTME: Counts chunks, bytes, errors, and subscriber population
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics contains all Prometheus metrics for chunk delivery.
type StreamMetrics struct {
	ChunksSent    prometheus.Counter
	BytesStreamed prometheus.Counter
	SendErrors    prometheus.Counter
	Subscribers   prometheus.Gauge
	EncodeLatency prometheus.Histogram
	registry      *prometheus.Registry
}

// NewStreamMetrics creates stream metrics registered on the given registry.
func NewStreamMetrics(registry *prometheus.Registry) (*StreamMetrics, error) {
	m := &StreamMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register stream metrics: %w", err)
	}
	return m, nil
}

func (m *StreamMetrics) initMetrics() {
	m.ChunksSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_chunks_sent_total",
		Help: "Total number of audio chunks queued to subscribers",
	})

	m.BytesStreamed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_bytes_total",
		Help: "Total encoded audio bytes queued to subscribers",
	})

	m.SendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_send_errors_total",
		Help: "Total number of chunk sends dropped on full subscriber buffers",
	})

	m.Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_subscribers",
		Help: "Current number of connected subscribers",
	})

	m.EncodeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stream_encode_seconds",
		Help:    "Time spent encoding one period for all subscribers",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
	})
}

// IncrementChunksSent counts one chunk queued to a subscriber.
func (m *StreamMetrics) IncrementChunksSent(bytes int) {
	m.ChunksSent.Inc()
	m.BytesStreamed.Add(float64(bytes))
}

// IncrementSendErrors counts one dropped chunk.
func (m *StreamMetrics) IncrementSendErrors() {
	m.SendErrors.Inc()
}

// SetSubscribers updates the subscriber population gauge.
func (m *StreamMetrics) SetSubscribers(n int) {
	m.Subscribers.Set(float64(n))
}

// ObserveEncodeLatency records the encode time for one period.
func (m *StreamMetrics) ObserveEncodeLatency(seconds float64) {
	m.EncodeLatency.Observe(seconds)
}

// Collect implements the prometheus.Collector interface.
func (m *StreamMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ChunksSent
	ch <- m.BytesStreamed
	ch <- m.SendErrors
	ch <- m.Subscribers
	ch <- m.EncodeLatency
}

// Describe implements the prometheus.Collector interface.
func (m *StreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ChunksSent.Desc()
	ch <- m.BytesStreamed.Desc()
	ch <- m.SendErrors.Desc()
	ch <- m.Subscribers.Desc()
	ch <- m.EncodeLatency.Desc()
}
