package graph

import (
	"fmt"
	"math"
	"sync"

	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/spatial"
	"github.com/paulmach/orb"
)

// IndexCellMeters sizes the geohash buckets of the node and edge indexes
const IndexCellMeters = 500

// Adjacent is one entry of a node's adjacency list
type Adjacent struct {
	Neighbor int64
	EdgeID   int64
	Length   float64
}

// BuildReport describes what New accepted, skipped and repaired
type BuildReport struct {
	Nodes          int              `json:"nodes"`
	Edges          int              `json:"edges"`
	SkippedNodes   int              `json:"skippedNodes"`
	SkippedEdges   int              `json:"skippedEdges"`
	DerivedLengths int              `json:"derivedLengths"`
	Warnings       []models.Warning `json:"warnings,omitempty"`
}

// Skipped returns the total number of malformed elements dropped
func (r BuildReport) Skipped() int {
	return r.SkippedNodes + r.SkippedEdges
}

func (r *BuildReport) warn(element, format string, args ...any) {
	r.Warnings = append(r.Warnings, models.Warning{
		Code:    models.WarnMalformed,
		Element: element,
		Message: fmt.Sprintf(format, args...),
	})
}

// Graph is an undirected road network. It is immutable after New, so any
// number of goroutines may query it concurrently.
type Graph struct {
	nodes     map[int64]models.Node
	nodeOrder []int64
	edges     map[int64]models.Edge
	edgeOrder []int64
	adj       map[int64][]Adjacent

	nodeIndexOnce sync.Once
	nodeIndex     *spatial.Index
	edgeIndexOnce sync.Once
	edgeIndex     *spatial.Index
}

// New validates provider data and builds the adjacency structure.
// Malformed nodes and edges are skipped and counted in the report.
func New(nodes []models.Node, edges []models.Edge) (*Graph, BuildReport) {
	var report BuildReport
	g := &Graph{
		nodes: make(map[int64]models.Node, len(nodes)),
		edges: make(map[int64]models.Edge, len(edges)),
		adj:   make(map[int64][]Adjacent, len(nodes)),
	}

	for _, n := range nodes {
		element := fmt.Sprintf("node:%d", n.ID)
		if !spatial.ValidPoint(n.Point) {
			report.SkippedNodes++
			report.warn(element, "invalid coordinate %v", n.Point)
			continue
		}
		if _, dup := g.nodes[n.ID]; dup {
			report.SkippedNodes++
			report.warn(element, "duplicate node id")
			continue
		}
		g.nodes[n.ID] = n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}

	for _, e := range edges {
		element := fmt.Sprintf("edge:%d", e.ID)
		u, okU := g.nodes[e.U]
		v, okV := g.nodes[e.V]
		if !okU || !okV {
			report.SkippedEdges++
			report.warn(element, "endpoint missing from node set (u=%d v=%d)", e.U, e.V)
			continue
		}
		if _, dup := g.edges[e.ID]; dup {
			report.SkippedEdges++
			report.warn(element, "duplicate edge id")
			continue
		}

		if !validLine(e.Geometry) {
			e.Geometry = orb.LineString{u.Point, v.Point}
		}
		if math.IsNaN(e.LengthMeters) || math.IsInf(e.LengthMeters, 0) || e.LengthMeters <= 0 {
			e.LengthMeters = spatial.PathLength(e.Geometry)
			report.DerivedLengths++
		}

		g.edges[e.ID] = e
		g.edgeOrder = append(g.edgeOrder, e.ID)
		g.adj[e.U] = append(g.adj[e.U], Adjacent{Neighbor: e.V, EdgeID: e.ID, Length: e.LengthMeters})
		if e.U != e.V {
			g.adj[e.V] = append(g.adj[e.V], Adjacent{Neighbor: e.U, EdgeID: e.ID, Length: e.LengthMeters})
		}
	}

	report.Nodes = len(g.nodes)
	report.Edges = len(g.edges)
	return g, report
}

func validLine(line orb.LineString) bool {
	if len(line) < 2 {
		return false
	}
	for _, p := range line {
		if !spatial.ValidPoint(p) {
			return false
		}
	}
	return true
}

// Node returns the node with the given id
func (g *Graph) Node(id int64) (models.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id
func (g *Graph) Edge(id int64) (models.Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// HasNode reports whether id is a node of the graph
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in input order
func (g *Graph) Nodes() []models.Node {
	out := make([]models.Node, len(g.nodeOrder))
	for i, id := range g.nodeOrder {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns all edges in input order
func (g *Graph) Edges() []models.Edge {
	out := make([]models.Edge, len(g.edgeOrder))
	for i, id := range g.edgeOrder {
		out[i] = g.edges[id]
	}
	return out
}

// Neighbors returns the adjacency list of a node, in edge input order.
// The slice is shared and must not be modified.
func (g *Graph) Neighbors(id int64) []Adjacent {
	return g.adj[id]
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIndex returns the spatial index over node points, built on first use
func (g *Graph) NodeIndex() *spatial.Index {
	g.nodeIndexOnce.Do(func() {
		elements := make([]spatial.Element, len(g.nodeOrder))
		for i, id := range g.nodeOrder {
			elements[i] = spatial.Element{ID: id, Geometry: g.nodes[id].Point}
		}
		g.nodeIndex = spatial.NewIndex(elements, IndexCellMeters)
	})
	return g.nodeIndex
}

// EdgeIndex returns the spatial index over edge polylines, built on first use
func (g *Graph) EdgeIndex() *spatial.Index {
	g.edgeIndexOnce.Do(func() {
		elements := make([]spatial.Element, len(g.edgeOrder))
		for i, id := range g.edgeOrder {
			elements[i] = spatial.Element{ID: id, Geometry: g.edges[id].Geometry}
		}
		g.edgeIndex = spatial.NewIndex(elements, IndexCellMeters)
	})
	return g.edgeIndex
}
