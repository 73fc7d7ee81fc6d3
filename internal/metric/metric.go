// Package metric exposes poll and command counters for Prometheus.
package metric

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

type Metric struct {
	registry *prometheus.Registry

	pollDuration  prometheus.Histogram
	pollCycles    prometheus.Counter
	skippedTicks  prometheus.Counter
	fieldFailures *prometheus.CounterVec
	commands      *prometheus.CounterVec
	breakerOpen   *prometheus.GaugeVec
}

// New creates the collectors on a private registry so several pollers (and
// tests) can coexist in one process.
func New(appID string) *Metric {
	ns := strings.NewReplacer("-", "_", " ", "_").Replace(appID)

	m := &Metric{
		registry: prometheus.NewRegistry(),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "poll_duration_seconds",
			Help:      "Wall time of one poll cycle across all sensors.",
			Buckets:   prometheus.DefBuckets,
		}),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles.",
		}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "poll_ticks_skipped_total",
			Help:      "Timer ticks dropped because a poll was still in flight.",
		}),
		fieldFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "field_failures_total",
			Help:      "Failed sensor fetches by field and error kind.",
		}, []string{"field", "kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "commands_total",
			Help:      "Device commands by name and outcome.",
		}, []string{"command", "outcome"}),
		breakerOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "endpoint_breaker_open",
			Help:      "1 while an endpoint's circuit breaker is not closed.",
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(
		m.pollDuration,
		m.pollCycles,
		m.skippedTicks,
		m.fieldFailures,
		m.commands,
		m.breakerOpen,
	)

	return m
}

func (m *Metric) PollCompleted(d time.Duration) {
	m.pollCycles.Inc()
	m.pollDuration.Observe(d.Seconds())
}

func (m *Metric) TickSkipped() {
	m.skippedTicks.Inc()
}

func (m *Metric) FieldFailed(field, kind string) {
	m.fieldFailures.WithLabelValues(field, kind).Inc()
}

func (m *Metric) CommandCompleted(command string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

// BreakerChanged tracks an endpoint breaker's new state. Half-open counts
// as not closed: the endpoint is still being probed.
func (m *Metric) BreakerChanged(endpoint string, to gobreaker.State) {
	v := 0.0
	if to != gobreaker.StateClosed {
		v = 1
	}
	m.breakerOpen.WithLabelValues(endpoint).Set(v)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
