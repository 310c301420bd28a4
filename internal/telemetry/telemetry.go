// Package telemetry exposes prometheus metrics for the index core. The
// collectors hang off an explicit registry passed in by the caller; there
// is no default-registry or other global state. A nil *Metrics is valid
// everywhere and records nothing, so the core runs unobserved without
// special-casing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the core's collectors.
type Metrics struct {
	factsAppended   prometheus.Counter
	deltasApplied   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheEvictions  prometheus.Counter
	extractionTime  prometheus.Histogram
	jobsCancelled   prometheus.Counter
	storeGeneration prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		factsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_facts_appended_total",
			Help: "Facts appended to the store across all deltas.",
		}),
		deltasApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_deltas_applied_total",
			Help: "Deltas applied by the single-writer applier.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_cache_hits_total",
			Help: "Fact cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_cache_misses_total",
			Help: "Fact cache misses, including stale entries.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_cache_evictions_total",
			Help: "Fact cache LRU evictions.",
		}),
		extractionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fidx_extraction_seconds",
			Help:    "Per-file fact extraction duration.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		jobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fidx_jobs_cancelled_total",
			Help: "Extraction jobs abandoned due to cancellation.",
		}),
		storeGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fidx_store_generation",
			Help: "Current store generation.",
		}),
	}

	collectors := []prometheus.Collector{
		m.factsAppended, m.deltasApplied,
		m.cacheHits, m.cacheMisses, m.cacheEvictions,
		m.extractionTime, m.jobsCancelled, m.storeGeneration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FactsAppended records n facts appended.
func (m *Metrics) FactsAppended(n int) {
	if m != nil {
		m.factsAppended.Add(float64(n))
	}
}

// DeltaApplied records one applied delta and the resulting generation.
func (m *Metrics) DeltaApplied(generation uint32) {
	if m != nil {
		m.deltasApplied.Inc()
		m.storeGeneration.Set(float64(generation))
	}
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// CacheEviction records an LRU eviction.
func (m *Metrics) CacheEviction() {
	if m != nil {
		m.cacheEvictions.Inc()
	}
}

// ExtractionDone records one per-file extraction duration.
func (m *Metrics) ExtractionDone(d time.Duration) {
	if m != nil {
		m.extractionTime.Observe(d.Seconds())
	}
}

// JobCancelled records an abandoned extraction job.
func (m *Metrics) JobCancelled() {
	if m != nil {
		m.jobsCancelled.Inc()
	}
}
