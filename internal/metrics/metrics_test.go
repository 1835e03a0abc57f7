// ABOUTME: Tests for Prometheus collectors
// ABOUTME: Verifies counter updates and engine scrape values
package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStreamMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewStreamMetrics(registry)
	if err != nil {
		t.Fatalf("failed to create stream metrics: %v", err)
	}

	m.IncrementChunksSent(1920)
	m.IncrementChunksSent(1920)
	m.IncrementSendErrors()
	m.SetSubscribers(3)

	if got := testutil.ToFloat64(m.ChunksSent); got != 2 {
		t.Errorf("expected 2 chunks sent, got %f", got)
	}
	if got := testutil.ToFloat64(m.BytesStreamed); got != 3840 {
		t.Errorf("expected 3840 bytes, got %f", got)
	}
	if got := testutil.ToFloat64(m.SendErrors); got != 1 {
		t.Errorf("expected 1 send error, got %f", got)
	}
	if got := testutil.ToFloat64(m.Subscribers); got != 3 {
		t.Errorf("expected 3 subscribers, got %f", got)
	}
}

func TestEngineCollectorScrape(t *testing.T) {
	registry := prometheus.NewRegistry()

	snapshot := EngineSnapshot{
		Frames:      96000,
		Periods:     100,
		Underruns:   2,
		Transitions: 1,
		Busy:        3 * time.Millisecond,
		Idle:        17 * time.Millisecond,
		Synced:      true,
	}

	_, err := NewEngineCollector(registry, func() EngineSnapshot { return snapshot })
	if err != nil {
		t.Fatalf("failed to create engine collector: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	want := map[string]float64{
		"engine_frames_total":           96000,
		"engine_periods_total":          100,
		"engine_underruns_total":        2,
		"engine_sync_transitions_total": 1,
		"engine_busy_seconds":           0.003,
		"engine_idle_seconds":           0.017,
		"engine_synced":                 1,
	}

	seen := make(map[string]float64)
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				seen[fam.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				seen[fam.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	for name, value := range want {
		got, ok := seen[name]
		if !ok {
			t.Errorf("metric %s not scraped", name)
			continue
		}
		if got != value {
			t.Errorf("metric %s: expected %f, got %f", name, value, got)
		}
	}
}

func TestEngineCollectorRequiresStats(t *testing.T) {
	registry := prometheus.NewRegistry()

	if _, err := NewEngineCollector(registry, nil); err == nil {
		t.Error("expected error for nil stats function")
	}
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.Stream.IncrementChunksSent(100)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stream_chunks_sent_total") {
		t.Error("expected stream_chunks_sent_total in exposition")
	}
}
