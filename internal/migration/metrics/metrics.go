package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks migration state machine activity. Reverts count finalize
// attempts whose local deletion failed; a growing revert count means this
// instance cannot let go of participants the directory already reassigned.
type Metrics struct {
	OutboundStarted   prometheus.Counter
	OutboundCancelled prometheus.Counter
	OutboundFinalized prometheus.Counter
	OutboundReverted  prometheus.Counter
	InboundCreated    prometheus.Counter
}

// New creates a Metrics instance with all migration metrics registered.
func New() *Metrics {
	return &Metrics{
		OutboundStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_migrations_outbound_started_total",
			Help: "Outbound migrations moved to IN_PROGRESS",
		}),
		OutboundCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_migrations_outbound_cancelled_total",
			Help: "Outbound migrations cancelled before finalization",
		}),
		OutboundFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_migrations_outbound_finalized_total",
			Help: "Outbound migrations completed with the local registration removed",
		}),
		OutboundReverted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_migrations_outbound_reverted_total",
			Help: "Finalize attempts reverted to IN_PROGRESS after a failed local deletion",
		}),
		InboundCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smp_migrations_inbound_created_total",
			Help: "Inbound migrations recorded after a confirmed directory handover",
		}),
	}
}
