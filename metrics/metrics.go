// Package metrics holds the prometheus collectors of the buffer pool and the lock manager.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "heapdb"

// Metrics is shared by the buffer pool and the lock manager. Collectors are usable even when they are not
// registered anywhere.
type Metrics struct {
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Evictions        prometheus.Counter
	EvictionFailures prometheus.Counter
	Flushes          prometheus.Counter
	Discards         prometheus.Counter
	ResidentPages    prometheus.Gauge

	LockGrants   *prometheus.CounterVec
	LockWaits    prometheus.Counter
	LockTimeouts prometheus.Counter
	Wounds       prometheus.Counter
	Aborts       prometheus.Counter
}

// New creates the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "hits_total",
			Help: "Page requests served from the buffer pool.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "misses_total",
			Help: "Page requests that had to read the page from disk.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "evictions_total",
			Help: "Clean pages evicted to make room.",
		}),
		EvictionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "eviction_failures_total",
			Help: "Evictions that failed because no cached page could be evicted.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "flushes_total",
			Help: "Dirty pages written back to disk.",
		}),
		Discards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "discards_total",
			Help: "Pages dropped from the cache without being written.",
		}),
		ResidentPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "buffer", Name: "resident_pages",
			Help: "Pages currently held by the buffer pool.",
		}),
		LockGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "grants_total",
			Help: "Page locks granted by mode.",
		}, []string{"mode"}),
		LockWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "waits_total",
			Help: "Lock requests that had to wait.",
		}),
		LockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "timeouts_total",
			Help: "Lock requests that timed out.",
		}),
		Wounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "wounds_total",
			Help: "Lock holders marked for abort by a timed out writer.",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lock", Name: "aborts_total",
			Help: "Lock requests failed with a transaction abort.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheHits, m.CacheMisses, m.Evictions, m.EvictionFailures, m.Flushes, m.Discards, m.ResidentPages,
			m.LockGrants, m.LockWaits, m.LockTimeouts, m.Wounds, m.Aborts,
		)
	}

	return m
}

// Sample is one metric value by its fully qualified name.
type Sample struct {
	Name  string
	Value float64
}

// Snapshot gathers the current values of all metrics registered on g, sorted by name.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	res := make([]Sample, 0)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			res = append(res, Sample{Name: sampleName(f.GetName(), m), Value: sampleValue(m)})
		}
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func sampleName(family string, m *dto.Metric) string {
	name := family
	for _, l := range m.GetLabel() {
		name += "{" + l.GetName() + "=" + l.GetValue() + "}"
	}
	return name
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}
