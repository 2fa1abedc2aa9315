// Package metrics exposes prometheus collectors for the snapshot cycle
// and the read endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CycleDuration tracks how long one snapshot recomputation takes.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crewpulse_cycle_duration_seconds",
			Help:    "Duration of one snapshot cycle tick",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// CycleTicks counts completed snapshot cycles.
	CycleTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crewpulse_cycle_ticks_total",
			Help: "Total number of completed snapshot cycles",
		},
	)

	// AgentsByState tracks how many agents are in each presence state.
	AgentsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crewpulse_agents_by_state",
			Help: "Number of agents per presence state in the latest snapshot",
		},
		[]string{"state"},
	)

	// GatewayUp reports the fleet gate: 1 when the execution backend is
	// reachable, 0 when it is not.
	GatewayUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewpulse_gateway_up",
			Help: "Whether the execution backend health probe succeeded",
		},
	)

	// EndpointErrors counts recovered failures in the read endpoint.
	EndpointErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crewpulse_endpoint_errors_total",
			Help: "Total number of recovered read endpoint failures",
		},
	)
)
