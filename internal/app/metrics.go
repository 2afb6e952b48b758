package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/specialistvlad/terrane/internal/graph"
)

// runMetrics exposes Prometheus metrics for the resolver. Every App
// carries its own registry so side-by-side instances never collide on
// collector registration.
type runMetrics struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	nodes       *prometheus.CounterVec
	instances   prometheus.Gauge
	evaluations prometheus.Counter
	reloads     prometheus.Counter

	registry *prometheus.Registry
}

func newRunMetrics() *runMetrics {
	registry := prometheus.NewRegistry()

	m := &runMetrics{
		registry: registry,

		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "terrane",
				Name:      "runs_total",
				Help:      "Total number of resolution runs",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "terrane",
				Name:      "run_duration_seconds",
				Help:      "Duration of resolution runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "terrane",
				Name:      "unresolved_nodes_total",
				Help:      "Total number of declarations that did not resolve, by terminal state",
			},
			[]string{"state"},
		),
		instances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "terrane",
				Name:      "resource_instances",
				Help:      "Resource instances resolved by the most recent run",
			},
		),
		evaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "terrane",
				Name:      "evaluations_total",
				Help:      "Total number of declaration evaluations",
			},
		),
		reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "terrane",
				Name:      "watch_reloads_total",
				Help:      "Total number of watch-mode reloads",
			},
		),
	}

	registry.MustRegister(
		m.runs,
		m.runDuration,
		m.nodes,
		m.instances,
		m.evaluations,
		m.reloads,
	)
	return m
}

// observe records the outcome of one resolution run.
func (m *runMetrics) observe(res *graph.Result, d time.Duration) {
	status := "ok"
	if len(res.Failures) > 0 {
		status = "failed"
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())

	m.nodes.WithLabelValues("failed").Add(float64(len(res.Failures)))
	m.nodes.WithLabelValues("skipped").Add(float64(len(res.Skipped)))
	m.nodes.WithLabelValues("deferred").Add(float64(len(res.Deferred)))
	m.instances.Set(float64(len(res.Instances)))
	m.evaluations.Add(float64(res.Stats.Total()))
}

// handler serves the registry in the standard exposition format.
func (m *runMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
