// Package metrics provides Prometheus metrics for tree builds, content reads
// and searches. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process, registered on their own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	treeBuildsTotal   *prometheus.CounterVec
	treeBuildDuration prometheus.Histogram
	treeNodes         prometheus.Gauge
	cacheHitsTotal    prometheus.Counter
	cacheMissesTotal  prometheus.Counter
	contentReadErrors prometheus.Counter
	filtersTotal      *prometheus.CounterVec
	filterDuration    prometheus.Histogram
	savesTotal        *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Tree metrics
		treeBuildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casebook_tree_builds_total",
				Help: "Total number of tree builds",
			},
			[]string{"status"},
		),
		treeBuildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "casebook_tree_build_duration_seconds",
				Help:    "Time to list and classify a root directory",
				Buckets: prometheus.DefBuckets,
			},
		),
		treeNodes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "casebook_tree_nodes",
				Help: "Number of nodes in the current tree",
			},
		),

		// Content cache metrics
		cacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "casebook_content_cache_hits_total",
				Help: "Total content cache hits",
			},
		),
		cacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "casebook_content_cache_misses_total",
				Help: "Total content cache misses",
			},
		),
		contentReadErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "casebook_content_read_errors_total",
				Help: "Content reads that failed during a search",
			},
		),

		// Search metrics
		filtersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casebook_filters_total",
				Help: "Total number of filters by outcome",
			},
			[]string{"outcome"},
		),
		filterDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "casebook_filter_duration_seconds",
				Help:    "Time to filter the tree for a query",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Editing metrics
		savesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casebook_saves_total",
				Help: "Total number of document saves",
			},
			[]string{"status"},
		),
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordTreeBuild records a tree build.
func (m *Metrics) RecordTreeBuild(d time.Duration, nodes int, err error) {
	if m == nil {
		return
	}
	m.treeBuildsTotal.WithLabelValues(status(err)).Inc()
	m.treeBuildDuration.Observe(d.Seconds())
	if err == nil {
		m.treeNodes.Set(float64(nodes))
	}
}

// RecordCacheHit records a content cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a content cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

// RecordContentReadError records a content read that failed during a search.
func (m *Metrics) RecordContentReadError() {
	if m == nil {
		return
	}
	m.contentReadErrors.Inc()
}

// Filter outcomes.
const (
	OutcomeApplied    = "applied"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
	OutcomeCleared    = "cleared"
)

// RecordFilter records a finished filter.
func (m *Metrics) RecordFilter(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.filtersTotal.WithLabelValues(outcome).Inc()
	m.filterDuration.Observe(d.Seconds())
}

// RecordSave records a document save.
func (m *Metrics) RecordSave(err error) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
