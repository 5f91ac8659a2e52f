package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineGraph has nodes 1 (0,0), 2 (~111 m east) and 3 (~2.2 km east)
func lineGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, report := graph.New(
		[]models.Node{
			{ID: 1, Point: orb.Point{0, 0}},
			{ID: 2, Point: orb.Point{0.001, 0}},
			{ID: 3, Point: orb.Point{0.02, 0}},
		},
		[]models.Edge{
			{ID: 10, U: 1, V: 2, LengthMeters: 111},
			{ID: 11, U: 2, V: 3, LengthMeters: 2100},
		},
	)
	require.Zero(t, report.Skipped())
	return g
}

func highIncident(id string, p orb.Point) models.HazardSource {
	return models.HazardSource{
		ID:       id,
		Point:    p,
		Category: models.CategoryIncident,
		Severity: models.CategoricalSeverity(models.SeverityHigh),
	}
}

func TestPropagateSingleHazard(t *testing.T) {
	g := lineGraph(t)
	res, err := NewEngine().Propagate(context.Background(), []models.HazardSource{highIncident("a", orb.Point{0, 0})}, g)
	require.NoError(t, err)

	d12 := spatial.PointDistance(orb.Point{0, 0}, orb.Point{0.001, 0})
	want := GaussianWeight(0.45, d12, 200)

	assert.InDelta(t, 0.45, res.NodeRisk.Get(1), 1e-12)
	assert.InDelta(t, want, res.NodeRisk.Get(2), 1e-9)
	assert.Zero(t, res.NodeRisk.Get(3))
	_, stored := res.NodeRisk[3]
	assert.False(t, stored)

	assert.InDelta(t, 0.45, res.EdgeRisk.Get(10), 1e-12)
	assert.InDelta(t, want, res.EdgeRisk.Get(11), 1e-6)

	require.Len(t, res.Hazards, 1)
	assert.Equal(t, 0.45, res.Hazards[0].Probability)
	assert.Equal(t, 1, res.Summary.Hazards)
	assert.Equal(t, 2, res.Summary.Nodes.Count)
	assert.InDelta(t, 0.45, res.Summary.Nodes.Max, 1e-12)
	assert.Empty(t, res.Warnings)
}

func TestPropagateCombinesWithProbabilisticOr(t *testing.T) {
	g := lineGraph(t)
	res, err := NewEngine().Propagate(context.Background(), []models.HazardSource{
		highIncident("a", orb.Point{0, 0}),
		highIncident("b", orb.Point{0, 0}),
	}, g)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.55*0.55, res.NodeRisk.Get(1), 1e-12)
}

func TestPropagateRespectsOverridesAndCategories(t *testing.T) {
	g := lineGraph(t)

	small := highIncident("a", orb.Point{0, 0})
	small.RadiusMeters = 50
	res, err := NewEngine().Propagate(context.Background(), []models.HazardSource{small}, g)
	require.NoError(t, err)
	assert.Zero(t, res.NodeRisk.Get(2))

	zone := models.HazardSource{
		ID:       "zone",
		Point:    orb.Point{0, 0},
		Category: models.CategoryStructuralRisk,
		Severity: ZoneSeverity(20),
	}
	res, err = NewEngine().Propagate(context.Background(), []models.HazardSource{zone}, g)
	require.NoError(t, err)
	d12 := spatial.PointDistance(orb.Point{0, 0}, orb.Point{0.001, 0})
	assert.InDelta(t, GaussianWeight(0.30, d12, 150), res.NodeRisk.Get(2), 1e-9)
	assert.Equal(t, 1, res.Summary.ByCategory[models.CategoryStructuralRisk])
}

func TestPropagateRecordsWarningsAndSkips(t *testing.T) {
	g := lineGraph(t)
	reg := metrics.NewRegistry()

	res, err := NewEngine(WithMetrics(reg)).Propagate(context.Background(), []models.HazardSource{
		{ID: "lost", Point: orb.Point{math.NaN(), 0}, Category: models.CategoryIncident},
		{ID: "odd", Point: orb.Point{0, 0}, Category: models.CategoryIncident, Severity: models.UnknownSeverity("banana")},
	}, g)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, models.WarnMalformed, res.Warnings[0].Code)
	assert.Equal(t, models.WarnInvalidSeverity, res.Warnings[1].Code)
	assert.InDelta(t, 0.18, res.NodeRisk.Get(1), 1e-12)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HazardsProcessed.WithLabelValues("incident")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ElementsSkipped.WithLabelValues("hazard")))
}

func TestPropagateEmptyInput(t *testing.T) {
	g := lineGraph(t)
	e := NewEngine()

	_, err := e.Propagate(context.Background(), nil, g)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	empty, _ := graph.New(nil, nil)
	_, err = e.Propagate(context.Background(), []models.HazardSource{highIncident("a", orb.Point{0, 0})}, empty)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	_, err = e.Propagate(context.Background(), []models.HazardSource{highIncident("a", orb.Point{0, 200})}, g)
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestPropagateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine().Propagate(ctx, []models.HazardSource{highIncident("a", orb.Point{0, 0})}, lineGraph(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPropagateIsIndependentOfWorkerCount(t *testing.T) {
	var nodes []models.Node
	var edges []models.Edge
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			id := int64(i*20 + j + 1)
			nodes = append(nodes, models.Node{ID: id, Point: orb.Point{float64(j) * 0.001, float64(i) * 0.001}})
			if j > 0 {
				edges = append(edges, models.Edge{ID: id * 10, U: id - 1, V: id})
			}
			if i > 0 {
				edges = append(edges, models.Edge{ID: id*10 + 1, U: id - 20, V: id})
			}
		}
	}
	g, _ := graph.New(nodes, edges)

	rng := rand.New(rand.NewPCG(7, 7))
	var hazards []models.HazardSource
	for i := 0; i < 40; i++ {
		hazards = append(hazards, models.HazardSource{
			ID:       fmt.Sprintf("h%d", i),
			Point:    orb.Point{rng.Float64() * 0.02, rng.Float64() * 0.02},
			Category: models.CategoryIncident,
			Severity: models.NumericSeverity(rng.Float64() * 100),
		})
	}

	serial, err := NewEngine(WithWorkers(1)).Propagate(context.Background(), hazards, g)
	require.NoError(t, err)
	parallel, err := NewEngine(WithWorkers(8)).Propagate(context.Background(), hazards, g)
	require.NoError(t, err)

	assert.Equal(t, serial.EdgeRisk, parallel.EdgeRisk)
	assert.Equal(t, serial.NodeRisk, parallel.NodeRisk)
	assert.NotEmpty(t, serial.EdgeRisk)
	for _, p := range serial.EdgeRisk {
		assert.True(t, p > 0 && p <= 1)
	}
}

func TestLoadProfiles(t *testing.T) {
	defaults, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfiles(), defaults)

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
incident:
  radius_m: 800
structural_risk:
  high: 0.35
flood:
  radius_m: 300
  sigma_m: 100
  high: 0.5
`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, 800.0, profiles[models.CategoryIncident].RadiusMeters)
	assert.Equal(t, 200.0, profiles[models.CategoryIncident].SigmaMeters)
	assert.Len(t, profiles[models.CategoryIncident].KindFallbacks, 3)
	assert.Equal(t, 0.35, profiles[models.CategoryStructuralRisk].High)
	assert.Equal(t, 500.0, profiles[models.CategoryStructuralRisk].RadiusMeters)
	assert.Equal(t, 0.5, profiles.For("flood").High)
	assert.Empty(t, profiles.For("flood").KindFallbacks)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("incident:\n  sigma_m: -1\n"), 0o644))
	_, err = LoadProfiles(bad)
	assert.ErrorContains(t, err, "SigmaMeters")

	_, err = LoadProfiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
