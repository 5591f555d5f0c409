// Package metrics exposes Prometheus instrumentation for dialogue turns,
// strategy failures and music lookups. A nil *Metrics is a valid no-op.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// Metrics owns a dedicated registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	turns    *prometheus.CounterVec
	failures *prometheus.CounterVec
	lookups  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songbot_turns_total",
				Help: "Dialogue turns by handling path",
			},
			[]string{"intent"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songbot_strategy_failures_total",
				Help: "Strategy executions that ended in a degraded reply",
			},
			[]string{"strategy", "kind"},
		),
		lookups: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "songbot_lookup_duration_seconds",
				Help:    "Latency of music lookup calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"op", "outcome"},
		),
	}
}

// ObserveTurn counts a turn handled along path, e.g. "genre" or "feedback".
func (m *Metrics) ObserveTurn(path string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(path).Inc()
}

// ObserveStrategyFailure counts a degraded strategy reply.
func (m *Metrics) ObserveStrategyFailure(strategy, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(strategy, kind).Inc()
}

// ObserveLookup records one lookup call. Failures carrying an upstream HTTP
// status are labelled "http_<status>", other failures "error".
func (m *Metrics) ObserveLookup(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(op, lookupOutcome(err)).Observe(elapsed.Seconds())
}

func lookupOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var le *ports.LookupError
	if errors.As(err, &le) && le.Status != 0 {
		return "http_" + strconv.Itoa(le.Status)
	}
	return "error"
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
