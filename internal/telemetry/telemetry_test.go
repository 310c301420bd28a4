package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	m.FactsAppended(3)
	m.FactsAppended(2)
	m.DeltaApplied(7)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.CacheEviction()
	m.JobCancelled()
	m.ExtractionDone(5 * time.Millisecond)

	if got := testutil.ToFloat64(m.factsAppended); got != 5 {
		t.Fatalf("facts appended = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.deltasApplied); got != 1 {
		t.Fatalf("deltas applied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.storeGeneration); got != 7 {
		t.Fatalf("store generation = %v, want 7", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two metric sets on two registries never collide; there is no global
	// registry involved.
	m1, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	m2, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	m1.CacheHit()
	if got := testutil.ToFloat64(m2.cacheHits); got != 0 {
		t.Fatalf("second registry saw first registry's increment: %v", got)
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first new: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("second registration on same registry succeeded")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.FactsAppended(1)
	m.DeltaApplied(1)
	m.CacheHit()
	m.CacheMiss()
	m.CacheEviction()
	m.JobCancelled()
	m.ExtractionDone(time.Second)
}
