// ABOUTME: Prometheus collector reading pacing engine counters at scrape time
// ABOUTME: Exposes periods, frames, underruns, and sync state without polling
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineSnapshot carries the engine counters a scrape reports.
type EngineSnapshot struct {
	Frames      uint64
	Periods     uint64
	Underruns   uint64
	Transitions uint64
	Busy        time.Duration
	Idle        time.Duration
	Synced      bool
}

// EngineStatsFunc returns the engine counters at scrape time.
type EngineStatsFunc func() EngineSnapshot

// EngineCollector exposes engine counters as const metrics.
type EngineCollector struct {
	stats EngineStatsFunc

	frames      *prometheus.Desc
	periods     *prometheus.Desc
	underruns   *prometheus.Desc
	transitions *prometheus.Desc
	busy        *prometheus.Desc
	idle        *prometheus.Desc
	synced      *prometheus.Desc
}

// NewEngineCollector registers an engine collector on the given registry.
func NewEngineCollector(registry *prometheus.Registry, stats EngineStatsFunc) (*EngineCollector, error) {
	if stats == nil {
		return nil, fmt.Errorf("stats function is required")
	}

	c := &EngineCollector{
		stats: stats,
		frames: prometheus.NewDesc(
			"engine_frames_total",
			"Total frames moved through the pacing engine",
			nil, nil),
		periods: prometheus.NewDesc(
			"engine_periods_total",
			"Total periods paced",
			nil, nil),
		underruns: prometheus.NewDesc(
			"engine_underruns_total",
			"Total periods padded with silence",
			nil, nil),
		transitions: prometheus.NewDesc(
			"engine_sync_transitions_total",
			"Total transitions from the starting regime to the synchronized regime",
			nil, nil),
		busy: prometheus.NewDesc(
			"engine_busy_seconds",
			"Busy time of the most recent period",
			nil, nil),
		idle: prometheus.NewDesc(
			"engine_idle_seconds",
			"Idle time of the most recent period",
			nil, nil),
		synced: prometheus.NewDesc(
			"engine_synced",
			"Whether pacing runs in the synchronized regime (1) or is still starting (0)",
			nil, nil),
	}

	if err := registry.Register(c); err != nil {
		return nil, fmt.Errorf("failed to register engine collector: %w", err)
	}
	return c, nil
}

// Describe implements the prometheus.Collector interface.
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.periods
	ch <- c.underruns
	ch <- c.transitions
	ch <- c.busy
	ch <- c.idle
	ch <- c.synced
}

// Collect implements the prometheus.Collector interface.
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()

	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Frames))
	ch <- prometheus.MustNewConstMetric(c.periods, prometheus.CounterValue, float64(s.Periods))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(s.Underruns))
	ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.CounterValue, float64(s.Transitions))
	ch <- prometheus.MustNewConstMetric(c.busy, prometheus.GaugeValue, s.Busy.Seconds())
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, s.Idle.Seconds())

	synced := 0.0
	if s.Synced {
		synced = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.synced, prometheus.GaugeValue, synced)
}
