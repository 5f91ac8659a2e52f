package evaluation

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/models"
)

// Risk score weights and the default recommendation threshold in percentage points
const (
	EdgeWeight       = 0.7
	NodeWeight       = 0.3
	DefaultThreshold = 5.0
)

var (
	// ErrDisconnectedRoute is returned when consecutive edges do not share a node
	ErrDisconnectedRoute = errors.New("route is not connected")
	// ErrUnknownEdge is returned for route edges missing from the graph
	ErrUnknownEdge = errors.New("unknown edge")
)

// RouteError locates the first invalid edge of a route
type RouteError struct {
	Index  int   // position in the route's edge list
	EdgeID int64 // offending edge
	At     int64 // node the walk had reached
	Err    error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("edge %d at position %d (from node %d): %v", e.EdgeID, e.Index, e.At, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// Evaluator scores routes against risk tables
type Evaluator struct {
	g *graph.Graph
}

// NewEvaluator creates an evaluator that resolves edges through g
func NewEvaluator(g *graph.Graph) *Evaluator {
	return &Evaluator{g: g}
}

// Evaluate walks the route from its source and computes its risk metrics.
// Edges and nodes missing from the risk tables count as zero risk. A route
// without edges yields an all-zero report.
func (ev *Evaluator) Evaluate(route *models.Route, edgeRisk, nodeRisk models.RiskTable) (models.RiskReport, error) {
	var report models.RiskReport
	if route == nil || len(route.Edges) == 0 {
		return report, nil
	}

	cur := route.Source
	if !ev.g.HasNode(cur) {
		return report, &RouteError{Index: 0, EdgeID: route.Edges[0], At: cur, Err: ErrDisconnectedRoute}
	}

	visited := map[int64]struct{}{cur: {}}
	nodeOrder := []int64{cur}
	var edgeSum float64
	for i, id := range route.Edges {
		e, ok := ev.g.Edge(id)
		if !ok {
			return models.RiskReport{}, &RouteError{Index: i, EdgeID: id, At: cur, Err: ErrUnknownEdge}
		}
		next, ok := e.Other(cur)
		if !ok {
			return models.RiskReport{}, &RouteError{Index: i, EdgeID: id, At: cur, Err: ErrDisconnectedRoute}
		}

		r := edgeRisk.Get(id)
		edgeSum += r
		if r > models.HighRiskThreshold {
			report.HighRiskSegments++
		}
		report.LengthMeters += e.LengthMeters

		if _, seen := visited[next]; !seen {
			visited[next] = struct{}{}
			nodeOrder = append(nodeOrder, next)
		}
		cur = next
	}

	// the walk must end on the declared target, known to the graph or not
	if cur != route.Target {
		last := len(route.Edges) - 1
		return models.RiskReport{}, &RouteError{Index: last, EdgeID: route.Edges[last], At: cur, Err: ErrDisconnectedRoute}
	}

	var nodeSum float64
	for _, id := range nodeOrder {
		nodeSum += nodeRisk.Get(id)
	}

	report.TotalSegments = len(route.Edges)
	report.DistinctNodes = len(nodeOrder)
	report.AvgEdgeRisk = edgeSum / float64(report.TotalSegments)
	report.AvgNodeRisk = nodeSum / float64(report.DistinctNodes)
	report.CombinedScore = EdgeWeight*report.AvgEdgeRisk + NodeWeight*report.AvgNodeRisk
	report.RiskPercentage = round(report.CombinedScore*100, 2)
	return report, nil
}

// Compare scores a candidate route against the distance-optimal one. The
// candidate is recommended when it lowers risk by more than threshold
// percentage points.
func Compare(optimal, candidate models.RiskReport, threshold float64) models.Comparison {
	reduction := round(optimal.RiskPercentage-candidate.RiskPercentage, 2)

	increase := 0.0
	if optimal.LengthMeters > 0 {
		increase = round((candidate.LengthMeters-optimal.LengthMeters)/optimal.LengthMeters*100, 2)
	}

	rec := models.RecommendOptimal
	if reduction > threshold {
		rec = models.RecommendResilient
	}
	return models.Comparison{
		RiskReductionPct:    reduction,
		DistanceIncreasePct: increase,
		Recommendation:      rec,
	}
}

// CompareRoutes evaluates both routes and builds the full comparison record
func (ev *Evaluator) CompareRoutes(origin, destination models.Location, optimal, resilient *models.Route,
	edgeRisk, nodeRisk models.RiskTable, threshold float64) (*models.RouteComparison, error) {
	optReport, err := ev.Evaluate(optimal, edgeRisk, nodeRisk)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate optimal route: %w", err)
	}
	resReport, err := ev.Evaluate(resilient, edgeRisk, nodeRisk)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate resilient route: %w", err)
	}

	return &models.RouteComparison{
		RunID:          uuid.NewString(),
		Origin:         origin,
		Destination:    destination,
		OptimalRoute:   summarize(optimal, optReport),
		ResilientRoute: summarize(resilient, resReport),
		Comparison:     Compare(optReport, resReport, threshold),
	}, nil
}

func summarize(route *models.Route, report models.RiskReport) models.RouteSummary {
	s := models.RouteSummary{
		LengthMeters: round(report.LengthMeters, 2),
		TimeMinutes:  round(report.LengthMeters/models.WalkingMetersPerMinute, 1),
		RiskReport:   report,
		Edges:        []int64{},
	}
	if route != nil {
		s.Edges = append(s.Edges, route.Edges...)
	}
	return s
}

func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
