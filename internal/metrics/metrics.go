package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// A nil *Registry is valid and records nothing, so components can take one optionally.

// RecordPropagation records a propagation run and the hazards it processed per category
func (r *Registry) RecordPropagation(duration time.Duration, byCategory map[string]int) {
	if r == nil {
		return
	}
	r.PropagationDuration.Observe(duration.Seconds())
	for category, n := range byCategory {
		r.HazardsProcessed.WithLabelValues(category).Add(float64(n))
	}
}

// RecordSkipped records malformed elements of a kind
func (r *Registry) RecordSkipped(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ElementsSkipped.WithLabelValues(kind).Add(float64(n))
}

// RecordActivations records the activated elements of a scenario
func (r *Registry) RecordActivations(edges, nodes, hazards int) {
	if r == nil {
		return
	}
	r.SimulationActivations.WithLabelValues("edge").Add(float64(edges))
	r.SimulationActivations.WithLabelValues("node").Add(float64(nodes))
	r.SimulationActivations.WithLabelValues("incident").Add(float64(hazards))
}

// RecordRouteQuery records a route query outcome
func (r *Registry) RecordRouteQuery(mode, status string) {
	if r == nil {
		return
	}
	r.RouteQueries.WithLabelValues(mode, status).Inc()
}

// RecordStage records the duration of a pipeline stage
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// WriteToTextfile dumps the registry in the node exporter textfile format
func (r *Registry) WriteToTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
