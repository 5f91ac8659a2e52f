package risk

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/spatial"
	"github.com/jengzang/resilient-routing/internal/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine propagates point hazards onto the edges and nodes of a road graph
type Engine struct {
	profiles Profiles
	workers  int
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures an Engine
type Option func(*Engine)

// WithProfiles sets the per-category propagation profiles
func WithProfiles(p Profiles) Option {
	return func(e *Engine) { e.profiles = p }
}

// WithWorkers bounds the number of hazards processed concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine with default profiles and one worker per CPU
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		profiles: DefaultProfiles(),
		workers:  runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary describes a propagation result
type Summary struct {
	Hazards    int                     `json:"hazards"`
	ByCategory map[models.Category]int `json:"byCategory"`
	Edges      stats.Distribution      `json:"edges"`
	Nodes      stats.Distribution      `json:"nodes"`
}

// Result holds the risk tables and everything learned while computing them
type Result struct {
	EdgeRisk models.RiskTable
	NodeRisk models.RiskTable
	// Hazards are the accepted sources with their base probability, in input order
	Hazards  []models.HazardProbability
	Warnings []models.Warning
	// Skipped counts malformed hazards
	Skipped int
	Summary Summary
}

// contribution is one hazard's weight on one element
type contribution struct {
	id     int64
	weight float64
}

// hazardContributions is the private output of one worker for one hazard
type hazardContributions struct {
	edges []contribution
	nodes []contribution
}

// Propagate computes per-edge and per-node risk from the hazards.
// Hazards are processed in parallel; each one writes only its own contribution
// lists which are merged in hazard order before aggregation.
func (e *Engine) Propagate(ctx context.Context, hazards []models.HazardSource, g *graph.Graph) (*Result, error) {
	if g == nil || (g.NodeCount() == 0 && g.EdgeCount() == 0) {
		return nil, fmt.Errorf("propagation needs a road graph: %w", models.ErrEmptyInput)
	}
	if len(hazards) == 0 {
		return nil, fmt.Errorf("propagation needs at least one hazard: %w", models.ErrEmptyInput)
	}

	start := time.Now()
	result := &Result{
		EdgeRisk: make(models.RiskTable),
		NodeRisk: make(models.RiskTable),
		Summary:  Summary{ByCategory: make(map[models.Category]int)},
	}

	for _, h := range hazards {
		if !spatial.ValidPoint(h.Point) {
			result.Skipped++
			result.Warnings = append(result.Warnings, models.Warning{
				Code:    models.WarnMalformed,
				Element: "hazard:" + h.ID,
				Message: fmt.Sprintf("invalid coordinate %v", h.Point),
			})
			e.logger.Warn("Skipping hazard with invalid coordinate", zap.String("hazard_id", h.ID))
			continue
		}

		p0, warn := BaseProbability(h, e.profiles.For(h.Category))
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
			e.logger.Warn("Recovered hazard severity",
				zap.String("hazard_id", h.ID),
				zap.String("code", warn.Code),
				zap.Float64("base_probability", p0))
		}
		result.Hazards = append(result.Hazards, models.HazardProbability{HazardSource: h, Probability: p0})
		result.Summary.ByCategory[h.Category]++
	}
	if len(result.Hazards) == 0 {
		return nil, fmt.Errorf("all %d hazards were malformed: %w", len(hazards), models.ErrEmptyInput)
	}

	// build the indexes before fanning out
	edgeIndex := g.EdgeIndex()
	nodeIndex := g.NodeIndex()

	perHazard := make([]hazardContributions, len(result.Hazards))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i := range result.Hazards {
		hp := result.Hazards[i]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			perHazard[i] = e.contributions(hp, edgeIndex, nodeIndex)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to propagate hazards: %w", err)
	}

	edgeWeights := make(map[int64][]float64)
	nodeWeights := make(map[int64][]float64)
	for _, hc := range perHazard {
		for _, c := range hc.edges {
			edgeWeights[c.id] = append(edgeWeights[c.id], c.weight)
		}
		for _, c := range hc.nodes {
			nodeWeights[c.id] = append(nodeWeights[c.id], c.weight)
		}
	}

	e.fill(result, result.EdgeRisk, edgeWeights, "edge")
	e.fill(result, result.NodeRisk, nodeWeights, "node")

	result.Summary.Hazards = len(result.Hazards)
	result.Summary.Edges = stats.Summarize(result.EdgeRisk.Values())
	result.Summary.Nodes = stats.Summarize(result.NodeRisk.Values())

	byCategory := make(map[string]int, len(result.Summary.ByCategory))
	for c, n := range result.Summary.ByCategory {
		byCategory[string(c)] = n
	}
	e.metrics.RecordPropagation(time.Since(start), byCategory)
	e.metrics.RecordSkipped("hazard", result.Skipped)

	e.logger.Info("Risk propagation completed",
		zap.Int("hazards", len(result.Hazards)),
		zap.Int("skipped", result.Skipped),
		zap.Int("edges_at_risk", len(result.EdgeRisk)),
		zap.Int("nodes_at_risk", len(result.NodeRisk)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// contributions returns the decayed weights of one hazard on nearby edges and nodes
func (e *Engine) contributions(hp models.HazardProbability, edgeIndex, nodeIndex *spatial.Index) hazardContributions {
	var out hazardContributions
	if hp.Probability <= 0 {
		return out
	}

	prof := e.profiles.For(hp.Category)
	radius := prof.RadiusMeters
	if hp.RadiusMeters > 0 {
		radius = hp.RadiusMeters
	}
	sigma := prof.SigmaMeters
	if hp.SigmaMeters > 0 {
		sigma = hp.SigmaMeters
	}

	for _, c := range edgeIndex.Within(hp.Point, radius) {
		if w := GaussianWeight(hp.Probability, c.DistanceMeters, sigma); w > 0 {
			out.edges = append(out.edges, contribution{id: c.ID, weight: w})
		}
	}
	for _, c := range nodeIndex.Within(hp.Point, radius) {
		if w := GaussianWeight(hp.Probability, c.DistanceMeters, sigma); w > 0 {
			out.nodes = append(out.nodes, contribution{id: c.ID, weight: w})
		}
	}
	return out
}

// fill aggregates weights into table in ascending id order
func (e *Engine) fill(result *Result, table models.RiskTable, weights map[int64][]float64, kind string) {
	ids := make([]int64, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		p := Aggregate(weights[id])
		if table.Set(id, p) {
			result.Warnings = append(result.Warnings, models.Warning{
				Code:    models.WarnClamped,
				Element: fmt.Sprintf("%s:%d", kind, id),
				Message: fmt.Sprintf("probability %v clamped", p),
			})
			e.logger.Warn("Clamped risk probability", zap.String("kind", kind), zap.Int64("id", id))
		}
	}
}
