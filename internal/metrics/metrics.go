// Package metrics exposes Prometheus collectors for the link service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hashlink"

// Lookup and removal outcomes
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultRemoved  = "removed"
	ResultError    = "error"
)

// Metrics holds the service collectors and the registry they belong to
type Metrics struct {
	registry *prometheus.Registry

	linksShortened  prometheus.Counter
	hashConflicts   prometheus.Counter
	lookups         *prometheus.CounterVec
	removals        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		linksShortened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_shortened_total",
			Help:      "Number of links created.",
		}),
		hashConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_conflicts_total",
			Help:      "Number of generated hashes rejected because an active link already used them.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Number of hash lookups by result.",
		}, []string{"result"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Number of removal attempts by result.",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.linksShortened,
		m.hashConflicts,
		m.lookups,
		m.removals,
		m.requestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LinkShortened records a created link
func (m *Metrics) LinkShortened() {
	if m == nil {
		return
	}
	m.linksShortened.Inc()
}

// HashConflict records a rejected hash
func (m *Metrics) HashConflict() {
	if m == nil {
		return
	}
	m.hashConflicts.Inc()
}

// Lookup records a lookup outcome
func (m *Metrics) Lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

// Removal records a removal outcome
func (m *Metrics) Removal(result string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(result).Inc()
}

// ObserveRequest records the latency of a served request
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
