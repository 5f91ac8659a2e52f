package graph

import (
	"math"
	"sync"
	"testing"

	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNodes() []models.Node {
	return []models.Node{
		{ID: 1, Point: orb.Point{-77.030, -12.050}},
		{ID: 2, Point: orb.Point{-77.029, -12.050}},
		{ID: 3, Point: orb.Point{-77.028, -12.050}},
	}
}

func TestNewBuildsUndirectedAdjacency(t *testing.T) {
	g, report := New(sampleNodes(), []models.Edge{
		{ID: 10, U: 1, V: 2, LengthMeters: 100},
		{ID: 11, U: 2, V: 3, LengthMeters: 100},
		{ID: 12, U: 2, V: 3, LengthMeters: 150}, // parallel edge is kept
	})

	assert.Equal(t, 3, report.Nodes)
	assert.Equal(t, 3, report.Edges)
	assert.Zero(t, report.Skipped())

	assert.Equal(t, []Adjacent{{Neighbor: 2, EdgeID: 10, Length: 100}}, g.Neighbors(1))
	assert.Equal(t, []Adjacent{
		{Neighbor: 1, EdgeID: 10, Length: 100},
		{Neighbor: 3, EdgeID: 11, Length: 100},
		{Neighbor: 3, EdgeID: 12, Length: 150},
	}, g.Neighbors(2))
	assert.Len(t, g.Neighbors(3), 2)
	assert.Empty(t, g.Neighbors(99))
}

func TestNewSkipsMalformedElements(t *testing.T) {
	nodes := append(sampleNodes(),
		models.Node{ID: 4, Point: orb.Point{math.NaN(), 0}},
		models.Node{ID: 1, Point: orb.Point{0, 0}},
	)
	g, report := New(nodes, []models.Edge{
		{ID: 10, U: 1, V: 2, LengthMeters: 100},
		{ID: 10, U: 2, V: 3, LengthMeters: 100}, // duplicate id
		{ID: 11, U: 2, V: 4, LengthMeters: 100}, // endpoint was skipped
		{ID: 12, U: 3, V: 99, LengthMeters: 100},
	})

	assert.Equal(t, 2, report.SkippedNodes)
	assert.Equal(t, 3, report.SkippedEdges)
	assert.Equal(t, 5, report.Skipped())
	assert.Len(t, report.Warnings, 5)
	for _, w := range report.Warnings {
		assert.Equal(t, models.WarnMalformed, w.Code)
	}

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	n, ok := g.Node(1)
	require.True(t, ok)
	assert.Equal(t, orb.Point{-77.030, -12.050}, n.Point)
	assert.False(t, g.HasNode(4))
}

func TestNewDerivesLengthAndGeometry(t *testing.T) {
	g, report := New(sampleNodes(), []models.Edge{
		{ID: 1, U: 1, V: 2},
		{ID: 2, U: 2, V: 3, LengthMeters: -5, Geometry: orb.LineString{{-77.029, -12.050}, {-77.0285, -12.049}, {-77.028, -12.050}}},
	})
	assert.Equal(t, 2, report.DerivedLengths)

	straight, ok := g.Edge(1)
	require.True(t, ok)
	assert.Len(t, straight.Geometry, 2)
	assert.InDelta(t, spatial.PointDistance(orb.Point{-77.030, -12.050}, orb.Point{-77.029, -12.050}), straight.LengthMeters, 1e-9)

	bent, _ := g.Edge(2)
	assert.InDelta(t, spatial.PathLength(bent.Geometry), bent.LengthMeters, 1e-9)
	assert.Greater(t, bent.LengthMeters, straight.LengthMeters)
}

func TestOrderIsInputOrder(t *testing.T) {
	g, _ := New(sampleNodes(), []models.Edge{
		{ID: 30, U: 2, V: 3, LengthMeters: 1},
		{ID: 20, U: 1, V: 2, LengthMeters: 1},
	})

	var ids []int64
	for _, e := range g.Edges() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{30, 20}, ids)
	assert.Equal(t, int64(1), g.Nodes()[0].ID)
}

func TestIndexesAreBuiltOnceConcurrently(t *testing.T) {
	g, _ := New(sampleNodes(), []models.Edge{{ID: 1, U: 1, V: 2, LengthMeters: 100}})

	var wg sync.WaitGroup
	got := make([]*spatial.Index, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = g.NodeIndex()
			g.EdgeIndex()
		}(i)
	}
	wg.Wait()

	for _, ix := range got {
		assert.Same(t, got[0], ix)
	}

	id, d, ok := g.NodeIndex().Nearest(orb.Point{-77.0281, -12.050})
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Less(t, d, 20.0)
	assert.Equal(t, 1, g.EdgeIndex().Len())
}
