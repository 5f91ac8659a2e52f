package stages

import (
	"context"
	"fmt"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/evaluation"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/routing"
	"github.com/paulmach/orb"
)

// RouteComparison is the stage name of RouteComparisonAnalyzer
const RouteComparison = "route_comparison"

// RouteComparisonAnalyzer plans the distance-optimal and the risk-aware route
// through the run's stops and compares their exposure
type RouteComparisonAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewRouteComparisonAnalyzer creates a new route comparison analyzer
func NewRouteComparisonAnalyzer(tasks analysis.TaskRecorder) analysis.Analyzer {
	return &RouteComparisonAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(tasks, RouteComparison),
	}
}

// Requires returns the risk propagation stage
func (a *RouteComparisonAnalyzer) Requires() []string {
	return []string{RiskPropagation}
}

// Analyze fills run.Comparison and sets run.Route to the recommended route
func (a *RouteComparisonAnalyzer) Analyze(ctx context.Context, run *analysis.Run) error {
	if run.Risk == nil {
		return fmt.Errorf("%s needs risk tables: %w", a.Name, analysis.ErrMissingInput)
	}
	stops := run.Params.Stops
	if len(stops) < 2 {
		return fmt.Errorf("%s needs an origin and a destination: %w", a.Name, analysis.ErrMissingInput)
	}

	return a.Track(ctx, run, func() (any, error) {
		router := routing.NewRouter(run.Graph,
			routing.WithPenalty(run.Params.Penalty),
			routing.WithLogger(run.Log()),
			routing.WithMetrics(run.Metrics),
		)

		optimal, err := router.RouteCoordinates(stops, routing.DistanceOnly, run.Risk.EdgeRisk)
		if err != nil {
			return nil, fmt.Errorf("failed to plan optimal route: %w", err)
		}
		resilient, err := router.RouteCoordinates(stops, routing.RiskAware, run.Risk.EdgeRisk)
		if err != nil {
			return nil, fmt.Errorf("failed to plan resilient route: %w", err)
		}

		origin := location("origin", stops[0], optimal.Source)
		destination := location("destination", stops[len(stops)-1], optimal.Target)

		cmp, err := evaluation.NewEvaluator(run.Graph).CompareRoutes(origin, destination, optimal, resilient,
			run.Risk.EdgeRisk, run.Risk.NodeRisk, run.Params.Threshold)
		if err != nil {
			return nil, err
		}
		cmp.RunID = run.ID
		run.Comparison = cmp

		run.Route = optimal
		if cmp.Comparison.Recommendation == models.RecommendResilient {
			run.Route = resilient
		}
		return cmp.Comparison, nil
	})
}

func location(name string, p orb.Point, nodeID int64) models.Location {
	return models.Location{Name: name, Lon: p.Lon(), Lat: p.Lat(), NodeID: nodeID}
}

func init() {
	analysis.RegisterAnalyzer(RouteComparison, NewRouteComparisonAnalyzer)
}
