package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// DefaultPenalty is the risk penalty coefficient k of the risk-aware cost
const DefaultPenalty = 5.0

var (
	// ErrNoPath is wrapped by every NoPathError
	ErrNoPath = errors.New("no path found")
	// ErrUnknownNode is returned for stops that are not graph nodes
	ErrUnknownNode = errors.New("unknown node")
)

// NoPathError reports the leg of a route that could not be connected
type NoPathError struct {
	Source int64
	Target int64
	Leg    int // 1-based
	Legs   int
}

func (e *NoPathError) Error() string {
	if e.Legs > 1 {
		return fmt.Sprintf("no path from %d to %d (leg %d of %d)", e.Source, e.Target, e.Leg, e.Legs)
	}
	return fmt.Sprintf("no path from %d to %d", e.Source, e.Target)
}

func (e *NoPathError) Unwrap() error { return ErrNoPath }

// CostMode selects the edge cost function
type CostMode int

// CostMode constants
const (
	// DistanceOnly costs an edge by its length
	DistanceOnly CostMode = iota
	// RiskAware costs an edge by length * (1 + k*risk)
	RiskAware
)

func (m CostMode) String() string {
	if m == RiskAware {
		return "risk"
	}
	return "distance"
}

// ParseCostMode parses "distance" or "risk"
func ParseCostMode(s string) (CostMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance", "distance_only", "shortest":
		return DistanceOnly, nil
	case "risk", "risk_aware", "resilient":
		return RiskAware, nil
	}
	return DistanceOnly, fmt.Errorf("unknown cost mode %q", s)
}

// Router computes shortest paths over a graph. The graph is only read, so a
// Router may serve concurrent queries.
type Router struct {
	g       *graph.Graph
	penalty float64
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures a Router
type Option func(*Router)

// WithPenalty sets the risk penalty coefficient k
func WithPenalty(k float64) Option {
	return func(r *Router) {
		if k >= 0 && !math.IsInf(k, 0) && !math.IsNaN(k) {
			r.penalty = k
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter creates a router over g
func NewRouter(g *graph.Graph, opts ...Option) *Router {
	r := &Router{g: g, penalty: DefaultPenalty, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Penalty returns the risk penalty coefficient
func (r *Router) Penalty() float64 {
	return r.penalty
}

// Cost returns the cost of traversing an edge of the given length and id
func (r *Router) Cost(edgeID int64, length float64, mode CostMode, risk models.RiskTable) float64 {
	if mode == RiskAware {
		return length * (1 + r.penalty*risk.Get(edgeID))
	}
	return length
}

// Route finds the cheapest path from source to target
func (r *Router) Route(source, target int64, mode CostMode, risk models.RiskTable) (*models.Route, error) {
	return r.RouteVia([]int64{source, target}, mode, risk)
}

// RouteVia chains cheapest paths through the ordered stops. The first failing
// leg aborts the whole route with a *NoPathError.
func (r *Router) RouteVia(stops []int64, mode CostMode, risk models.RiskTable) (*models.Route, error) {
	route, err := r.routeVia(stops, mode, risk)

	status := "ok"
	switch {
	case errors.Is(err, ErrNoPath):
		status = "no_path"
	case err != nil:
		status = "error"
	}
	r.metrics.RecordRouteQuery(mode.String(), status)

	if err != nil {
		r.logger.Warn("Route query failed", zap.Int64s("stops", stops), zap.String("mode", mode.String()), zap.Error(err))
		return nil, err
	}
	return route, nil
}

func (r *Router) routeVia(stops []int64, mode CostMode, risk models.RiskTable) (*models.Route, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("route needs at least one stop: %w", models.ErrEmptyInput)
	}
	for _, id := range stops {
		if !r.g.HasNode(id) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
		}
	}

	route := &models.Route{
		Source: stops[0],
		Target: stops[len(stops)-1],
		Stops:  append([]int64(nil), stops...),
		Edges:  []int64{},
		Nodes:  []int64{stops[0]},
	}

	legs := len(stops) - 1
	for i := 0; i < legs; i++ {
		from, to := stops[i], stops[i+1]
		edges, nodes, length, cost, ok := r.shortestPath(from, to, mode, risk)
		if !ok {
			return nil, &NoPathError{Source: from, Target: to, Leg: i + 1, Legs: legs}
		}
		route.Edges = append(route.Edges, edges...)
		route.Nodes = append(route.Nodes, nodes[1:]...)
		route.LengthMeters += length
		route.Cost += cost
	}
	return route, nil
}

// step records how a node was reached
type step struct {
	from   int64
	edgeID int64
	length float64
}

// shortestPath runs Dijkstra from source to target. Only strictly cheaper
// paths replace a known one, so among equal-cost paths the first found wins.
func (r *Router) shortestPath(source, target int64, mode CostMode, risk models.RiskTable) ([]int64, []int64, float64, float64, bool) {
	if source == target {
		return nil, []int64{source}, 0, 0, true
	}

	dist := map[int64]float64{source: 0}
	prev := make(map[int64]step)
	done := make(map[int64]bool)

	seq := 0
	pq := &priorityQueue{}
	heap.Push(pq, &pqItem{node: source, cost: 0, seq: seq})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if done[current] {
			continue
		}
		done[current] = true
		if current == target {
			break
		}

		for _, adj := range r.g.Neighbors(current) {
			if done[adj.Neighbor] {
				continue
			}
			next := item.cost + r.Cost(adj.EdgeID, adj.Length, mode, risk)
			if old, ok := dist[adj.Neighbor]; ok && next >= old {
				continue
			}
			dist[adj.Neighbor] = next
			prev[adj.Neighbor] = step{from: current, edgeID: adj.EdgeID, length: adj.Length}
			seq++
			heap.Push(pq, &pqItem{node: adj.Neighbor, cost: next, seq: seq})
		}
	}

	if !done[target] {
		return nil, nil, 0, 0, false
	}

	var edges []int64
	nodes := []int64{target}
	length := 0.0
	for n := target; n != source; {
		s := prev[n]
		edges = append(edges, s.edgeID)
		nodes = append(nodes, s.from)
		length += s.length
		n = s.from
	}
	reverse(edges)
	reverse(nodes)
	return edges, nodes, length, dist[target], true
}

func reverse(s []int64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Snap resolves a coordinate to the nearest graph node and its distance in meters
func (r *Router) Snap(p orb.Point) (int64, float64, error) {
	id, d, ok := r.g.NodeIndex().Nearest(p)
	if !ok {
		return 0, 0, fmt.Errorf("cannot snap %v: %w", p, models.ErrEmptyInput)
	}
	return id, d, nil
}

// RouteCoordinates snaps each coordinate to its nearest node and routes through them in order
func (r *Router) RouteCoordinates(points []orb.Point, mode CostMode, risk models.RiskTable) (*models.Route, error) {
	stops := make([]int64, 0, len(points))
	for _, p := range points {
		id, d, err := r.Snap(p)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Snapped coordinate", zap.Float64("lon", p.Lon()), zap.Float64("lat", p.Lat()),
			zap.Int64("node_id", id), zap.Float64("distance_m", d))
		stops = append(stops, id)
	}
	return r.RouteVia(stops, mode, risk)
}
