package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the pipeline metrics on a private prometheus registry
type Registry struct {
	registry *prometheus.Registry

	PropagationDuration   prometheus.Histogram
	HazardsProcessed      *prometheus.CounterVec
	ElementsSkipped       *prometheus.CounterVec
	SimulationActivations *prometheus.CounterVec
	RouteQueries          *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.PropagationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskroute_propagation_duration_seconds",
			Help:    "Duration of risk propagation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.HazardsProcessed = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskroute_hazards_processed_total",
			Help: "Total number of hazard sources propagated",
		},
		[]string{"category"},
	)

	r.ElementsSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskroute_elements_skipped_total",
			Help: "Total number of malformed elements skipped",
		},
		[]string{"kind"}, // node, edge, hazard
	)

	r.SimulationActivations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskroute_simulation_activations_total",
			Help: "Total number of elements activated by simulations",
		},
		[]string{"type"}, // edge, node, incident
	)

	r.RouteQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskroute_route_queries_total",
			Help: "Total number of route queries",
		},
		[]string{"mode", "status"},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskroute_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
