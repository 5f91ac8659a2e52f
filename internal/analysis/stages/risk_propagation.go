package stages

import (
	"context"
	"fmt"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/risk"
)

// RiskPropagation is the stage name of RiskPropagationAnalyzer
const RiskPropagation = "risk_propagation"

// RiskPropagationAnalyzer spreads hazard probabilities onto the road graph
type RiskPropagationAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewRiskPropagationAnalyzer creates a new risk propagation analyzer
func NewRiskPropagationAnalyzer(tasks analysis.TaskRecorder) analysis.Analyzer {
	return &RiskPropagationAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(tasks, RiskPropagation),
	}
}

type propagationSummary struct {
	risk.Summary
	Warnings int `json:"warnings"`
	Skipped  int `json:"skipped"`
}

// Analyze computes run.Risk from the run's hazards and graph
func (a *RiskPropagationAnalyzer) Analyze(ctx context.Context, run *analysis.Run) error {
	if run.Graph == nil || run.Dataset == nil {
		return fmt.Errorf("%s needs a dataset: %w", a.Name, analysis.ErrMissingInput)
	}

	return a.Track(ctx, run, func() (any, error) {
		opts := []risk.Option{
			risk.WithWorkers(run.Params.Workers),
			risk.WithLogger(run.Log()),
			risk.WithMetrics(run.Metrics),
		}
		if len(run.Params.Profiles) > 0 {
			opts = append(opts, risk.WithProfiles(run.Params.Profiles))
		}

		result, err := risk.NewEngine(opts...).Propagate(ctx, run.Dataset.Hazards, run.Graph)
		if err != nil {
			return nil, err
		}
		run.Risk = result
		return propagationSummary{
			Summary:  result.Summary,
			Warnings: len(result.Warnings),
			Skipped:  result.Skipped,
		}, nil
	})
}

func init() {
	analysis.RegisterAnalyzer(RiskPropagation, NewRiskPropagationAnalyzer)
}
