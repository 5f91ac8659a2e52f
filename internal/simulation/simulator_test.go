package simulation

import (
	"testing"
	"time"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fractionalInput(n int) Input {
	edges := make(models.RiskTable)
	nodes := make(models.RiskTable)
	for i := 1; i <= n; i++ {
		edges.Set(int64(i), 0.5)
		nodes.Set(int64(i), float64(i%9+1)/10)
	}
	return Input{EdgeRisk: edges, NodeRisk: nodes}
}

func activeSet(sc *models.Scenario) []string {
	var out []string
	for _, d := range sc.Log {
		if d.Occurred {
			out = append(out, string(d.Type)+":"+d.ID)
		}
	}
	return out
}

func TestSimulateDrawOrderAndLog(t *testing.T) {
	g, _ := graph.New(
		[]models.Node{{ID: 1, Point: orb.Point{0, 0}}, {ID: 2, Point: orb.Point{0.001, 0}}},
		[]models.Edge{{ID: 7, U: 1, V: 2, LengthMeters: 100}},
	)
	in := Input{
		EdgeRisk: models.RiskTable{7: 1, 3: 0.2},
		NodeRisk: models.RiskTable{2: 1, 1: 0},
		Hazards: []models.HazardProbability{
			{HazardSource: models.HazardSource{ID: "b", Category: models.CategoryIncident, Kind: "ACCIDENTE", Point: orb.Point{1, 2}}, Probability: 1},
			{HazardSource: models.HazardSource{ID: "a", Category: models.CategoryStructuralRisk}, Probability: 0.1},
			{HazardSource: models.HazardSource{ID: "z"}, Probability: 0},
		},
		Graph: g,
	}

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("PET", -5*3600))
	seed := int64(42)
	sc, err := NewSimulator(WithClock(func() time.Time { return fixed })).Simulate(in, &seed)
	require.NoError(t, err)

	assert.Equal(t, int64(42), sc.Seed)
	assert.Equal(t, fixed.UTC(), sc.Timestamp)
	assert.NotEmpty(t, sc.RunID)

	// zero-probability elements are never drawn
	var order []string
	for _, d := range sc.Log {
		order = append(order, string(d.Type)+":"+d.ID)
		assert.True(t, d.DrawnValue >= 0 && d.DrawnValue <= 100)
		assert.Equal(t, float64(d.DrawnValue) <= d.Threshold, d.Occurred)
		assert.InDelta(t, 100*d.Probability, d.Threshold, 1e-6)
	}
	assert.Equal(t, []string{"edge:3", "edge:7", "node:2", "incident:a", "incident:b"}, order)

	// probability one is always active
	require.NotEmpty(t, sc.ActiveEdges)
	last := sc.ActiveEdges[len(sc.ActiveEdges)-1]
	assert.Equal(t, models.ActiveEdge{ID: 7, U: 1, V: 2, Probability: 1, Severity: models.BandHigh}, last)
	assert.Contains(t, sc.ActiveNodes, models.ActiveNode{ID: 2, Probability: 1, Severity: models.BandHigh})

	var b *models.ActiveHazard
	for i := range sc.ActiveHazards {
		if sc.ActiveHazards[i].ID == "b" {
			b = &sc.ActiveHazards[i]
		}
	}
	require.NotNil(t, b)
	assert.Equal(t, [2]float64{1, 2}, b.Coordinates)
	assert.Equal(t, "ACCIDENTE", b.Type)

	assert.Equal(t, 5, sc.Summary.Evaluated)
	assert.Equal(t, sc.Summary.Edges+sc.Summary.Nodes+sc.Summary.Hazards, sc.Summary.Total)
	assert.Equal(t, len(activeSet(sc)), sc.Summary.Total)
	bands := 0
	for _, n := range sc.Summary.BySeverity {
		bands += n
	}
	assert.Equal(t, sc.Summary.Total, bands)
	assert.GreaterOrEqual(t, sc.Summary.ByCategory[models.CategoryIncident], 1)
}

func TestSimulateGeneratesSeed(t *testing.T) {
	sc, err := NewSimulator().Simulate(fractionalInput(10), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sc.Seed, int64(MinSeed))
	assert.LessOrEqual(t, sc.Seed, int64(MaxSeed))

	// the recorded seed reproduces the run
	again, err := NewSimulator().Simulate(fractionalInput(10), &sc.Seed)
	require.NoError(t, err)
	assert.Equal(t, sc.Log, again.Log)
}

func TestSimulateEmptyInput(t *testing.T) {
	seed := int64(1)
	_, err := NewSimulator().Simulate(Input{}, &seed)
	assert.ErrorIs(t, err, models.ErrEmptyInput)
}

func TestSimulateRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	seed := int64(9)
	sc, err := NewSimulator(WithMetrics(reg)).Simulate(Input{EdgeRisk: models.RiskTable{1: 1, 2: 1}}, &seed)
	require.NoError(t, err)
	assert.Len(t, sc.ActiveEdges, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.SimulationActivations.WithLabelValues("edge")))
}

func TestSimulateDifferentSeedsDiffer(t *testing.T) {
	in := fractionalInput(200)
	a, b := int64(11), int64(12)
	first, err := NewSimulator().Simulate(in, &a)
	require.NoError(t, err)
	second, err := NewSimulator().Simulate(in, &b)
	require.NoError(t, err)
	assert.NotEqual(t, activeSet(first), activeSet(second))
}

func TestSimulateDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	in := fractionalInput(50)
	sim := NewSimulator()

	properties.Property("same seed and tables reproduce the scenario", prop.ForAll(
		func(seed int64) bool {
			a, err := sim.Simulate(in, &seed)
			if err != nil {
				return false
			}
			b, err := sim.Simulate(in, &seed)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(a.Log, b.Log) &&
				assert.ObjectsAreEqual(a.ActiveEdges, b.ActiveEdges) &&
				assert.ObjectsAreEqual(a.ActiveNodes, b.ActiveNodes) &&
				assert.ObjectsAreEqual(a.Summary, b.Summary)
		},
		gen.Int64Range(MinSeed, MaxSeed),
	))

	properties.Property("one draw per non-zero element", prop.ForAll(
		func(seed int64) bool {
			sc, err := sim.Simulate(in, &seed)
			return err == nil && len(sc.Log) == len(in.EdgeRisk)+len(in.NodeRisk)
		},
		gen.Int64Range(MinSeed, MaxSeed),
	))

	properties.TestingRun(t)
}

func TestThresholdForRoundedProbabilities(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.29, 29},
		{0.57, 57},
		{0.1235, 12.35},
		{1, 100},
		{0.0001, 0.01},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, thresholdFor(tt.p), "p=%v", tt.p)
	}

	seed := int64(5)
	sc, err := NewSimulator().Simulate(Input{EdgeRisk: models.RiskTable{1: 0.29}}, &seed)
	require.NoError(t, err)
	require.Len(t, sc.Log, 1)
	assert.Equal(t, 29.0, sc.Log[0].Threshold)
	assert.Equal(t, sc.Log[0].DrawnValue <= 29, sc.Log[0].Occurred)
}
