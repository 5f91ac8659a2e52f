package main

import (
	"fmt"

	"github.com/jengzang/resilient-routing/internal/analysis/stages"
	"github.com/jengzang/resilient-routing/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) propagateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "propagate",
		Short: "Spread hazard probabilities onto edges and nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.newRun(nil)
			if err != nil {
				return err
			}
			if err := a.execute(cmd.Context(), cmd, run, stages.RiskPropagation); err != nil {
				return err
			}
			s := run.Risk.Summary
			fmt.Fprintf(cmd.OutOrStdout(), "hazards: %d, edges at risk: %d, nodes at risk: %d\n",
				s.Hazards, s.Edges.Count, s.Nodes.Count)
			return nil
		},
	}
}

func (a *app) simulateCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Draw one reproducible threat scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.newRun(nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				run.Params.Seed = &seed
			}
			if err := a.execute(cmd.Context(), cmd, run, stages.ThreatSimulation); err != nil {
				return err
			}
			printScenario(cmd, run.Scenario.Seed, run.Scenario.Summary.Total, run.Scenario.Summary.Evaluated)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed to reproduce a scenario (random when unset)")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var seed int64
	var stops stopsFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage: propagate, simulate and compare routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			points, err := stops.points()
			if err != nil {
				return err
			}
			run, err := a.newRun(points)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				run.Params.Seed = &seed
			}
			if err := a.execute(cmd.Context(), cmd, run, service.AllStages...); err != nil {
				return err
			}
			printScenario(cmd, run.Scenario.Seed, run.Scenario.Summary.Total, run.Scenario.Summary.Evaluated)
			printComparison(cmd, run.Comparison)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed to reproduce a scenario (random when unset)")
	stops.register(cmd)
	return cmd
}

func printScenario(cmd *cobra.Command, seed int64, active, evaluated int) {
	fmt.Fprintf(cmd.OutOrStdout(), "seed: %d, active threats: %d of %d evaluated\n", seed, active, evaluated)
}
