package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "morsr"
	metricsSubsystem = "overlay_cache"
)

// Metrics mirrors Stats as Prometheus collectors.
type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Evictions     prometheus.Counter
	Stores        prometheus.Counter
	BackendHits   prometheus.Counter
	BackendErrors prometheus.Counter
	Entries       prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Hits:          counter("hits_total", "Lookups answered from memory or the backend."),
		Misses:        counter("misses_total", "Lookups that found nothing."),
		Evictions:     counter("evictions_total", "Entries evicted by the LRU policy."),
		Stores:        counter("stores_total", "Successful puts."),
		BackendHits:   counter("backend_hits_total", "Memory misses answered by the backend."),
		BackendErrors: counter("backend_errors_total", "Failed backend calls, downgraded to misses."),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "entries",
			Help:      "Overlays currently held in memory.",
		}),
	}
}
