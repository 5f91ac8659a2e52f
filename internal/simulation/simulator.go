package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"go.uber.org/zap"
)

// Auto-generated seeds are drawn from [MinSeed, MaxSeed]
const (
	MinSeed = 1
	MaxSeed = 100000
)

// Input is what a scenario is drawn from. Graph is optional and only used
// to report the endpoints of active edges.
type Input struct {
	EdgeRisk models.RiskTable
	NodeRisk models.RiskTable
	Hazards  []models.HazardProbability
	Graph    *graph.Graph
}

func (in Input) empty() bool {
	return len(in.EdgeRisk) == 0 && len(in.NodeRisk) == 0 && len(in.Hazards) == 0
}

// Simulator draws activation scenarios
type Simulator struct {
	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithClock sets the time source used for scenario timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator creates a simulator
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeed returns a fresh seed in [MinSeed, MaxSeed]
func NewSeed() int64 {
	return MinSeed + rand.Int64N(MaxSeed-MinSeed+1)
}

// NewRand returns the generator a scenario with this seed is drawn from
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// Simulate draws a scenario. A nil seed generates one, which is recorded in
// the scenario so the run can be reproduced.
func (s *Simulator) Simulate(in Input, seed *int64) (*models.Scenario, error) {
	var sd int64
	if seed != nil {
		sd = *seed
	} else {
		sd = NewSeed()
	}
	return s.SimulateWith(NewRand(sd), sd, in)
}

// SimulateWith draws a scenario from rng. Exactly one value in [0,100] is drawn
// per element with non-zero probability, edges then nodes then hazards, each in
// ascending id order; an element is active iff the value is at most 100p.
func (s *Simulator) SimulateWith(rng *rand.Rand, seed int64, in Input) (*models.Scenario, error) {
	if in.empty() {
		return nil, fmt.Errorf("simulation needs a risk table or hazards: %w", models.ErrEmptyInput)
	}

	sc := &models.Scenario{
		RunID:         uuid.NewString(),
		Seed:          seed,
		Timestamp:     s.now().UTC(),
		ActiveEdges:   []models.ActiveEdge{},
		ActiveNodes:   []models.ActiveNode{},
		ActiveHazards: []models.ActiveHazard{},
		Summary: models.ScenarioSummary{
			BySeverity: map[models.SeverityBand]int{
				models.BandHigh:   0,
				models.BandMedium: 0,
				models.BandLow:    0,
			},
			ByCategory: make(map[models.Category]int),
		},
	}

	draw := func(t models.ElementType, id string, p float64) bool {
		if p <= 0 {
			return false
		}
		threshold := thresholdFor(p)
		r := rng.IntN(101)
		occurred := float64(r) <= threshold
		sc.Log = append(sc.Log, models.Draw{
			Type:        t,
			ID:          id,
			Probability: p,
			Threshold:   threshold,
			DrawnValue:  r,
			Occurred:    occurred,
		})
		if occurred {
			sc.Summary.BySeverity[models.BandFor(p)]++
		}
		return occurred
	}

	for _, id := range in.EdgeRisk.IDs() {
		p := in.EdgeRisk[id]
		if !draw(models.ElementEdge, strconv.FormatInt(id, 10), p) {
			continue
		}
		active := models.ActiveEdge{ID: id, Probability: p, Severity: models.BandFor(p)}
		if in.Graph != nil {
			if e, ok := in.Graph.Edge(id); ok {
				active.U, active.V = e.U, e.V
			}
		}
		sc.ActiveEdges = append(sc.ActiveEdges, active)
	}

	for _, id := range in.NodeRisk.IDs() {
		p := in.NodeRisk[id]
		if draw(models.ElementNode, strconv.FormatInt(id, 10), p) {
			sc.ActiveNodes = append(sc.ActiveNodes, models.ActiveNode{ID: id, Probability: p, Severity: models.BandFor(p)})
		}
	}

	hazards := slices.Clone(in.Hazards)
	slices.SortStableFunc(hazards, func(a, b models.HazardProbability) int {
		return strings.Compare(a.ID, b.ID)
	})
	for _, h := range hazards {
		if !draw(models.ElementHazard, h.ID, h.Probability) {
			continue
		}
		sc.ActiveHazards = append(sc.ActiveHazards, models.ActiveHazard{
			ID:          h.ID,
			Category:    h.Category,
			Type:        h.Kind,
			Description: h.Description,
			Coordinates: [2]float64{h.Point.Lon(), h.Point.Lat()},
			Probability: h.Probability,
			Severity:    models.BandFor(h.Probability),
		})
		sc.Summary.ByCategory[h.Category]++
	}

	sc.Summary.Edges = len(sc.ActiveEdges)
	sc.Summary.Nodes = len(sc.ActiveNodes)
	sc.Summary.Hazards = len(sc.ActiveHazards)
	sc.Summary.Total = sc.Summary.Edges + sc.Summary.Nodes + sc.Summary.Hazards
	sc.Summary.Evaluated = len(sc.Log)

	s.metrics.RecordActivations(sc.Summary.Edges, sc.Summary.Nodes, sc.Summary.Hazards)
	s.logger.Info("Scenario simulated",
		zap.Int64("seed", seed),
		zap.String("run_id", sc.RunID),
		zap.Int("evaluated", sc.Summary.Evaluated),
		zap.Int("active", sc.Summary.Total))

	return sc, nil
}

// thresholdFor scales p to the 0..100 draw scale. Rounding to 6 decimals keeps
// 4-digit probabilities such as 0.29 on their exact integer threshold.
func thresholdFor(p float64) float64 {
	return math.Round(p*100*1e6) / 1e6
}
