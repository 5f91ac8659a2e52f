package stages

import (
	"context"
	"fmt"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/simulation"
)

// ThreatSimulation is the stage name of ThreatSimulationAnalyzer
const ThreatSimulation = "threat_simulation"

// ThreatSimulationAnalyzer draws one reproducible scenario from the risk tables
type ThreatSimulationAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewThreatSimulationAnalyzer creates a new threat simulation analyzer
func NewThreatSimulationAnalyzer(tasks analysis.TaskRecorder) analysis.Analyzer {
	return &ThreatSimulationAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(tasks, ThreatSimulation),
	}
}

type simulationSummary struct {
	Seed int64 `json:"seed"`
	models.ScenarioSummary
}

// Requires returns the risk propagation stage
func (a *ThreatSimulationAnalyzer) Requires() []string {
	return []string{RiskPropagation}
}

// Analyze draws run.Scenario with run.Params.Seed, generating a seed when unset
func (a *ThreatSimulationAnalyzer) Analyze(ctx context.Context, run *analysis.Run) error {
	if run.Risk == nil {
		return fmt.Errorf("%s needs risk tables: %w", a.Name, analysis.ErrMissingInput)
	}

	return a.Track(ctx, run, func() (any, error) {
		sim := simulation.NewSimulator(
			simulation.WithLogger(run.Log()),
			simulation.WithMetrics(run.Metrics),
		)
		sc, err := sim.Simulate(simulation.Input{
			EdgeRisk: run.Risk.EdgeRisk,
			NodeRisk: run.Risk.NodeRisk,
			Hazards:  run.Risk.Hazards,
			Graph:    run.Graph,
		}, run.Params.Seed)
		if err != nil {
			return nil, err
		}
		sc.RunID = run.ID
		run.Scenario = sc
		return simulationSummary{Seed: sc.Seed, ScenarioSummary: sc.Summary}, nil
	})
}

func init() {
	analysis.RegisterAnalyzer(ThreatSimulation, NewThreatSimulationAnalyzer)
}
