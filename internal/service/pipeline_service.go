package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/analysis/stages"
	"github.com/jengzang/resilient-routing/internal/geodata"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/repository"
	"github.com/jengzang/resilient-routing/internal/risk"
	"github.com/jengzang/resilient-routing/internal/routing"
	"go.uber.org/zap"
)

// ErrUnknownStage is returned for a stage name with no registered analyzer
var ErrUnknownStage = errors.New("unknown stage")

// AllStages is the full pipeline in execution order
var AllStages = []string{stages.RiskPropagation, stages.ThreatSimulation, stages.RouteComparison}

// PipelineService runs analysis stages and persists their outputs
type PipelineService struct {
	tasks     analysis.TaskRecorder
	risk      *repository.RiskRepository
	scenarios *repository.ScenarioRepository
	routes    *repository.RouteRepository
	logger    *zap.Logger
}

// NewPipelineService creates a pipeline service. A nil db disables persistence.
func NewPipelineService(db *sql.DB, logger *zap.Logger) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PipelineService{logger: logger}
	if db != nil {
		s.tasks = repository.NewTaskRepository(db)
		s.risk = repository.NewRiskRepository(db)
		s.scenarios = repository.NewScenarioRepository(db)
		s.routes = repository.NewRouteRepository(db)
	}
	return s
}

// Execute runs the named stages in order. Stages they require are run first
// unless the run already holds their outputs.
func (s *PipelineService) Execute(ctx context.Context, run *analysis.Run, names ...string) error {
	plan, err := s.plan(run, names)
	if err != nil {
		return err
	}

	for _, a := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := a.GetName()
		start := time.Now()
		err := a.Analyze(ctx, run)
		elapsed := time.Since(start)
		run.Metrics.RecordStage(name, elapsed)
		if err != nil {
			return fmt.Errorf("stage %s failed: %w", name, err)
		}
		run.MarkDone(name)

		if err := s.persist(ctx, name, run); err != nil {
			return err
		}
		s.logger.Info("Stage completed",
			zap.String("run_id", run.ID),
			zap.String("stage", name),
			zap.Duration("elapsed", elapsed))
	}
	return nil
}

func (s *PipelineService) plan(run *analysis.Run, names []string) ([]analysis.Analyzer, error) {
	var order []analysis.Analyzer
	seen := make(map[string]bool)

	var visit func(name string, requested bool) error
	visit = func(name string, requested bool) error {
		if seen[name] || (!requested && run.Done(name)) {
			return nil
		}
		a := analysis.GetAnalyzer(name, s.tasks)
		if a == nil {
			return fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
		seen[name] = true
		for _, dep := range a.Requires() {
			if err := visit(dep, false); err != nil {
				return err
			}
		}
		order = append(order, a)
		return nil
	}

	for _, name := range names {
		if err := visit(name, true); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (s *PipelineService) persist(ctx context.Context, stage string, run *analysis.Run) error {
	switch {
	case stage == stages.RiskPropagation && s.risk != nil:
		edges := geodata.EdgeEntries(run.Risk.EdgeRisk, run.Graph)
		nodes := geodata.NodeEntries(run.Risk.NodeRisk)
		if err := s.risk.ReplaceTables(ctx, run.ID, edges, nodes); err != nil {
			return fmt.Errorf("failed to persist risk tables: %w", err)
		}
	case stage == stages.ThreatSimulation && s.scenarios != nil:
		if err := s.scenarios.Save(ctx, run.Scenario); err != nil {
			return fmt.Errorf("failed to persist scenario: %w", err)
		}
	case stage == stages.RouteComparison && s.routes != nil:
		if err := s.routes.SaveComparison(ctx, run.Comparison); err != nil {
			return fmt.Errorf("failed to persist route comparison: %w", err)
		}
	}
	return nil
}

// LoadRisk fills run.Risk from the stored tables, reporting false when
// persistence is disabled or nothing is stored. The loaded result carries no
// hazard list.
func (s *PipelineService) LoadRisk(ctx context.Context, run *analysis.Run) (bool, error) {
	if s.risk == nil {
		return false, nil
	}
	edges, nodes, err := s.risk.LoadTables(ctx)
	if err != nil {
		return false, err
	}
	if len(edges) == 0 && len(nodes) == 0 {
		return false, nil
	}
	run.Risk = &risk.Result{
		EdgeRisk: geodata.EdgeTable(edges),
		NodeRisk: geodata.NodeTable(nodes),
	}
	run.MarkDone(stages.RiskPropagation)
	s.logger.Info("Loaded stored risk tables",
		zap.String("run_id", run.ID),
		zap.Int("edges", len(edges)),
		zap.Int("nodes", len(nodes)))
	return true, nil
}

// Route plans a single route through run.Params.Stops. Risk-aware routing
// propagates risk first unless the run already holds it.
func (s *PipelineService) Route(ctx context.Context, run *analysis.Run, mode routing.CostMode) (*models.Route, error) {
	if len(run.Params.Stops) < 2 {
		return nil, fmt.Errorf("route needs an origin and a destination: %w", analysis.ErrMissingInput)
	}

	var table models.RiskTable
	if mode == routing.RiskAware {
		if !run.Done(stages.RiskPropagation) {
			if err := s.Execute(ctx, run, stages.RiskPropagation); err != nil {
				return nil, err
			}
		}
		table = run.Risk.EdgeRisk
	}

	router := routing.NewRouter(run.Graph,
		routing.WithPenalty(run.Params.Penalty),
		routing.WithLogger(run.Log()),
		routing.WithMetrics(run.Metrics),
	)
	route, err := router.RouteCoordinates(run.Params.Stops, mode, table)
	if err != nil {
		return nil, err
	}
	run.Route = route
	return route, nil
}

// Export writes every output the run holds into dir and returns the file names
func (s *PipelineService) Export(run *analysis.Run, dir string) ([]string, error) {
	var written []string
	write := func(name string, data []byte, err error) error {
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := geodata.WriteFile(dir, name, data); err != nil {
			return err
		}
		written = append(written, name)
		return nil
	}

	if run.Risk != nil {
		data, err := geodata.EncodeJSON(geodata.EdgeEntries(run.Risk.EdgeRisk, run.Graph))
		if err := write(geodata.FileEdgeRisk, data, err); err != nil {
			return written, err
		}
		data, err = geodata.EncodeJSON(geodata.NodeEntries(run.Risk.NodeRisk))
		if err := write(geodata.FileNodeRisk, data, err); err != nil {
			return written, err
		}
		if run.Risk.Hazards != nil {
			data, err = geodata.EncodeHazards(run.Risk.Hazards)
			if err := write(geodata.FileHazards, data, err); err != nil {
				return written, err
			}
		}
	}

	if run.Scenario != nil {
		data, err := geodata.EncodeActiveThreats(run.Scenario)
		if err := write(geodata.FileActiveThreats, data, err); err != nil {
			return written, err
		}
		data, err = geodata.EncodeSimulationLog(run.Scenario)
		if err := write(geodata.FileSimulationLog, data, err); err != nil {
			return written, err
		}
	}

	if run.Route != nil {
		data, err := geodata.EncodeRoute(run.Route, run.Graph)
		if err := write(geodata.FileRoute, data, err); err != nil {
			return written, err
		}
	}

	if run.Comparison != nil {
		data, err := geodata.EncodeJSON(run.Comparison)
		if err := write(geodata.FileComparison, data, err); err != nil {
			return written, err
		}
	}

	return written, nil
}
