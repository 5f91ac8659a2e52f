package analysis

import (
	"github.com/google/uuid"
	"github.com/jengzang/resilient-routing/internal/geodata"
	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/risk"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// Params are the knobs of a pipeline run
type Params struct {
	Profiles  risk.Profiles `json:"profiles,omitempty"`
	Workers   int           `json:"workers,omitempty"`
	Seed      *int64        `json:"seed,omitempty"`
	Penalty   float64       `json:"penalty"`
	Threshold float64       `json:"threshold"`
	// Stops are the route origin, waypoints and destination in order
	Stops []orb.Point `json:"stops,omitempty"`
}

// DefaultParams returns the stock penalty and recommendation threshold
func DefaultParams() Params {
	return Params{Penalty: 5, Threshold: 5}
}

// Run carries the inputs and the accumulated outputs of one pipeline run
type Run struct {
	ID      string
	Dataset *geodata.Dataset
	Graph   *graph.Graph
	Build   graph.BuildReport
	Params  Params

	Logger  *zap.Logger
	Metrics *metrics.Registry

	// Outputs
	Risk       *risk.Result
	Scenario   *models.Scenario
	Route      *models.Route
	Comparison *models.RouteComparison

	done map[string]bool
}

// NewRun builds the road graph of ds and wraps it in a run
func NewRun(ds *geodata.Dataset, params Params, logger *zap.Logger, m *metrics.Registry) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	run := &Run{
		ID:      uuid.NewString(),
		Dataset: ds,
		Params:  params,
		Metrics: m,
		done:    make(map[string]bool),
	}
	run.Logger = logger.With(zap.String("run_id", run.ID))

	run.Graph, run.Build = graph.New(ds.Nodes, ds.Edges)
	m.RecordSkipped("node", ds.Report.Nodes.Skipped+run.Build.SkippedNodes)
	m.RecordSkipped("edge", ds.Report.Edges.Skipped+run.Build.SkippedEdges)
	m.RecordSkipped("hazard", ds.Report.Incidents.Skipped+ds.Report.Zones.Skipped)
	run.Logger.Info("Road graph built",
		zap.Int("nodes", run.Build.Nodes),
		zap.Int("edges", run.Build.Edges),
		zap.Int("skipped", run.Build.Skipped()+ds.Report.Skipped()),
		zap.Int("hazards", len(ds.Hazards)))
	return run
}

// MarkDone records that stage produced its outputs
func (r *Run) MarkDone(stage string) {
	if r.done == nil {
		r.done = make(map[string]bool)
	}
	r.done[stage] = true
}

// Done reports whether stage already produced its outputs
func (r *Run) Done(stage string) bool {
	return r.done[stage]
}

// Log returns the run logger, a no-op one when unset
func (r *Run) Log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
