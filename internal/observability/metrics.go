// Package observability holds the engine's self-monitoring metrics and
// the optional endpoint that exposes them.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for engine self-monitoring.
// It uses a custom registry to avoid polluting the global default.
// Metrics implements the cache Recorder interface so the command cache
// reports hits, misses, evictions and coalesced executions here.
type Metrics struct {
	Registry *prometheus.Registry

	// Command cache metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    prometheus.Counter
	CacheEvictionsTotal prometheus.Counter
	CoalescedTotal      prometheus.Counter

	// External process metrics
	ProcessInvocationsTotal *prometheus.CounterVec
	ProcessDuration         *prometheus.HistogramVec

	// Fetch cycle metrics
	FetchOutcomesTotal *prometheus.CounterVec
	GateWaitDuration   prometheus.Histogram
}

// NewMetrics creates a Metrics instance with everything registered on a
// custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeagle_command_cache_hits_total",
			Help: "Total command cache hits, by cache tier.",
		}, []string{"tier"}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeagle_command_cache_misses_total",
			Help: "Total command cache misses.",
		}),
		CacheEvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeagle_command_cache_evictions_total",
			Help: "Total shared cache entries evicted at capacity.",
		}),
		CoalescedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeagle_command_coalesced_total",
			Help: "Total executions served by attaching to an in-flight call.",
		}),

		ProcessInvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeagle_process_invocations_total",
			Help: "Total external tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ProcessDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubeagle_process_duration_seconds",
			Help:    "Duration of external tool invocations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),

		FetchOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeagle_fetch_outcomes_total",
			Help: "Total fetch cycle outcomes, by data source and state.",
		}, []string{"source", "state"}),
		GateWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubeagle_gate_wait_duration_seconds",
			Help:    "Time spent waiting on the concurrency gate in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.CoalescedTotal,
		m.ProcessInvocationsTotal,
		m.ProcessDuration,
		m.FetchOutcomesTotal,
		m.GateWaitDuration,
	)
	return m
}

// Hit implements the cache Recorder interface.
func (m *Metrics) Hit(tier string) {
	m.CacheHitsTotal.WithLabelValues(tier).Inc()
}

// Miss implements the cache Recorder interface.
func (m *Metrics) Miss() {
	m.CacheMissesTotal.Inc()
}

// Eviction implements the cache Recorder interface.
func (m *Metrics) Eviction() {
	m.CacheEvictionsTotal.Inc()
}

// Coalesced implements the cache Recorder interface.
func (m *Metrics) Coalesced() {
	m.CoalescedTotal.Inc()
}

// ObserveProcess records one external tool invocation.
func (m *Metrics) ObserveProcess(tool string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProcessInvocationsTotal.WithLabelValues(tool, outcome).Inc()
	m.ProcessDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveFetch records one fetch cycle outcome for a data source.
func (m *Metrics) ObserveFetch(source, state string) {
	m.FetchOutcomesTotal.WithLabelValues(source, state).Inc()
}

// ObserveGateWait records time spent queued on the concurrency gate.
func (m *Metrics) ObserveGateWait(d time.Duration) {
	m.GateWaitDuration.Observe(d.Seconds())
}
