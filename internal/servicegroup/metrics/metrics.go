package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the service group module: registration
// churn, hot-path lookup latency and cache effectiveness, and the
// compensation failures that need operator attention.
type Metrics struct {
	Created              prometheus.Counter
	Deleted              prometheus.Counter
	CompensationFailures prometheus.Counter
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	LookupDuration       prometheus.Histogram
}

// New creates a Metrics instance with all service group metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_service_groups_created_total",
			Help: "Total number of service groups created",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_service_groups_deleted_total",
			Help: "Total number of service groups deleted",
		}),
		CompensationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_sml_compensation_failures_total",
			Help: "Failed best-effort SML compensations leaving local and remote state inconsistent",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_identifier_cache_hits_total",
			Help: "Lookups served from the identifier cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_identifier_cache_misses_total",
			Help: "Lookups that fell through to the store",
		}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "smp_service_group_lookup_duration_seconds",
			Help:    "Duration of Lookup operations (resolution critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveLookup records the duration of a Lookup operation. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveLookup(start time.Time) {
	m.LookupDuration.Observe(time.Since(start).Seconds())
}
