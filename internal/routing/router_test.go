package routing

import (
	"errors"
	"sync"
	"testing"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge ids encode their endpoints: 12 is 1-2, 23 is 2-3, and so on.
func diamond(t *testing.T, extra ...models.Edge) *graph.Graph {
	t.Helper()
	nodes := []models.Node{
		{ID: 1, Point: orb.Point{0, 0}},
		{ID: 2, Point: orb.Point{0.001, 0.001}},
		{ID: 3, Point: orb.Point{0.002, 0}},
		{ID: 4, Point: orb.Point{0.003, 0}},
	}
	edges := append([]models.Edge{
		{ID: 12, U: 1, V: 2, LengthMeters: 100},
		{ID: 23, U: 2, V: 3, LengthMeters: 100},
		{ID: 13, U: 1, V: 3, LengthMeters: 500},
		{ID: 34, U: 3, V: 4, LengthMeters: 100},
	}, extra...)
	g, report := graph.New(nodes, edges)
	require.Zero(t, report.Skipped())
	return g
}

func TestRouteDistanceOnly(t *testing.T) {
	r := NewRouter(diamond(t))

	route, err := r.Route(1, 4, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 23, 34}, route.Edges)
	assert.Equal(t, []int64{1, 2, 3, 4}, route.Nodes)
	assert.Equal(t, 300.0, route.LengthMeters)
	assert.Equal(t, 300.0, route.Cost)
	assert.Equal(t, int64(1), route.Source)
	assert.Equal(t, int64(4), route.Target)
}

func TestRouteRiskAwareAvoidsRiskyEdge(t *testing.T) {
	r := NewRouter(diamond(t), WithPenalty(5))
	risk := models.RiskTable{23: 0.9, 13: 0.0}

	route, err := r.Route(1, 4, RiskAware, risk)
	require.NoError(t, err)
	assert.Equal(t, []int64{13, 34}, route.Edges)
	assert.Equal(t, 600.0, route.LengthMeters)
	assert.Equal(t, 600.0, route.Cost)

	// risk only biases cost, distance mode ignores it
	route, err = r.Route(1, 4, DistanceOnly, risk)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 23, 34}, route.Edges)
}

func TestRouteFullRiskStaysConnected(t *testing.T) {
	r := NewRouter(diamond(t))
	risk := models.RiskTable{12: 1, 23: 1, 13: 1, 34: 1}

	route, err := r.Route(1, 4, RiskAware, risk)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 23, 34}, route.Edges)
	assert.Equal(t, 300.0*6, route.Cost)
}

func TestRouteTieUsesFirstDiscovered(t *testing.T) {
	// 1-3 directly at 200 m ties with 1-2-3
	r := NewRouter(diamond(t, models.Edge{ID: 99, U: 1, V: 3, LengthMeters: 200}))
	route, err := r.Route(1, 3, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, route.Edges)

	// parallel edges of equal length: the first listed wins
	r = NewRouter(diamond(t, models.Edge{ID: 77, U: 3, V: 4, LengthMeters: 100}))
	route, err = r.Route(3, 4, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{34}, route.Edges)
}

func TestRouteParallelEdgePicksCheaper(t *testing.T) {
	r := NewRouter(diamond(t, models.Edge{ID: 77, U: 3, V: 4, LengthMeters: 60}))
	route, err := r.Route(3, 4, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{77}, route.Edges)

	route, err = r.Route(3, 4, RiskAware, models.RiskTable{77: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int64{34}, route.Edges)
}

func TestRouteNoPath(t *testing.T) {
	nodes := []models.Node{
		{ID: 1, Point: orb.Point{0, 0}},
		{ID: 2, Point: orb.Point{0.001, 0}},
		{ID: 3, Point: orb.Point{0.002, 0}},
	}
	// node 3 has no incident edges
	g, _ := graph.New(nodes, []models.Edge{{ID: 12, U: 1, V: 2, LengthMeters: 100}})
	reg := metrics.NewRegistry()
	r := NewRouter(g, WithMetrics(reg))

	route, err := r.Route(1, 3, DistanceOnly, nil)
	assert.Nil(t, route)
	require.ErrorIs(t, err, ErrNoPath)

	var npe *NoPathError
	require.True(t, errors.As(err, &npe))
	assert.Equal(t, int64(1), npe.Source)
	assert.Equal(t, int64(3), npe.Target)
	assert.Equal(t, "no path from 1 to 3", npe.Error())

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RouteQueries.WithLabelValues("distance", "no_path")))
}

func TestRouteViaWaypoints(t *testing.T) {
	r := NewRouter(diamond(t))

	route, err := r.RouteVia([]int64{4, 1, 2}, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{34, 23, 12, 12}, route.Edges)
	assert.Equal(t, []int64{4, 3, 2, 1, 2}, route.Nodes)
	assert.Equal(t, 400.0, route.LengthMeters)
	assert.Equal(t, []int64{4, 1, 2}, route.Stops)

	// a repeated stop is an empty leg
	route, err = r.RouteVia([]int64{1, 1, 2}, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, route.Edges)
	assert.Equal(t, []int64{1, 2}, route.Nodes)

	route, err = r.RouteVia([]int64{3}, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Empty(t, route.Edges)
	assert.Zero(t, route.LengthMeters)
}

func TestRouteViaFailingLeg(t *testing.T) {
	nodes := []models.Node{
		{ID: 1, Point: orb.Point{0, 0}},
		{ID: 2, Point: orb.Point{0.001, 0}},
		{ID: 3, Point: orb.Point{0.002, 0}},
		{ID: 4, Point: orb.Point{0.003, 0}},
	}
	g, _ := graph.New(nodes, []models.Edge{
		{ID: 12, U: 1, V: 2, LengthMeters: 100},
		{ID: 34, U: 3, V: 4, LengthMeters: 100},
	})
	r := NewRouter(g)

	_, err := r.RouteVia([]int64{1, 2, 3, 4}, DistanceOnly, nil)
	var npe *NoPathError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, 2, npe.Leg)
	assert.Equal(t, 3, npe.Legs)
	assert.Equal(t, int64(2), npe.Source)
	assert.Equal(t, int64(3), npe.Target)
	assert.Contains(t, err.Error(), "leg 2 of 3")
}

func TestRouteValidatesStops(t *testing.T) {
	r := NewRouter(diamond(t))

	_, err := r.Route(1, 42, DistanceOnly, nil)
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = r.RouteVia(nil, DistanceOnly, nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestSnapAndRouteCoordinates(t *testing.T) {
	r := NewRouter(diamond(t))

	id, d, err := r.Snap(orb.Point{0.0029, 0.0001})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	assert.Less(t, d, 20.0)

	route, err := r.RouteCoordinates([]orb.Point{{0.0001, 0}, {0.0031, 0.0001}}, DistanceOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 23, 34}, route.Edges)

	empty, _ := graph.New(nil, nil)
	_, _, err = NewRouter(empty).Snap(orb.Point{0, 0})
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestConcurrentQueries(t *testing.T) {
	r := NewRouter(diamond(t))
	risk := models.RiskTable{23: 0.9}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := CostMode(i % 2)
			route, err := r.Route(1, 4, mode, risk)
			if err != nil {
				errs <- err
				return
			}
			want := 300.0
			if mode == RiskAware {
				want = 600
			}
			if route.LengthMeters != want {
				errs <- errors.New("unexpected route length")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestParseCostMode(t *testing.T) {
	m, err := ParseCostMode("Risk")
	require.NoError(t, err)
	assert.Equal(t, RiskAware, m)

	m, err = ParseCostMode("distance")
	require.NoError(t, err)
	assert.Equal(t, DistanceOnly, m)

	_, err = ParseCostMode("fastest")
	assert.Error(t, err)
	assert.Equal(t, "risk", RiskAware.String())
}
