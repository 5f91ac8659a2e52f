package main

import (
	"context"
	"fmt"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/analysis/stages"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/routing"
	"github.com/spf13/cobra"
)

func (a *app) routeCmd() *cobra.Command {
	var stops stopsFlags
	var mode string
	var reuse bool
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Plan one route between coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			costMode, err := routing.ParseCostMode(mode)
			if err != nil {
				return err
			}
			run, err := a.routingRun(cmd.Context(), &stops, reuse)
			if err != nil {
				return err
			}
			route, err := a.svc.Route(cmd.Context(), run, costMode)
			if err != nil {
				return err
			}
			if err := a.export(cmd, run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s route: %d edges, %.1f m, cost %.1f\n",
				costMode, len(route.Edges), route.LengthMeters, route.Cost)
			return nil
		},
	}
	stops.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "risk", "cost mode: distance or risk")
	cmd.Flags().BoolVar(&reuse, "reuse-risk", false, "route on the risk tables stored in the database when present")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var stops stopsFlags
	var reuse bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the shortest route with the risk-aware one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.routingRun(cmd.Context(), &stops, reuse)
			if err != nil {
				return err
			}
			if err := a.execute(cmd.Context(), cmd, run, stages.RouteComparison); err != nil {
				return err
			}
			printComparison(cmd, run.Comparison)
			return nil
		},
	}
	stops.register(cmd)
	cmd.Flags().BoolVar(&reuse, "reuse-risk", false, "compare on the risk tables stored in the database when present")
	return cmd
}

func (a *app) routingRun(ctx context.Context, stops *stopsFlags, reuse bool) (*analysis.Run, error) {
	points, err := stops.points()
	if err != nil {
		return nil, err
	}
	run, err := a.newRun(points)
	if err != nil {
		return nil, err
	}
	if reuse {
		if _, err := a.svc.LoadRisk(ctx, run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func printComparison(cmd *cobra.Command, cmp *models.RouteComparison) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "optimal:   %.1f m, %.1f min, risk %.2f%%\n",
		cmp.OptimalRoute.LengthMeters, cmp.OptimalRoute.TimeMinutes, cmp.OptimalRoute.RiskReport.RiskPercentage)
	fmt.Fprintf(out, "resilient: %.1f m, %.1f min, risk %.2f%%\n",
		cmp.ResilientRoute.LengthMeters, cmp.ResilientRoute.TimeMinutes, cmp.ResilientRoute.RiskReport.RiskPercentage)
	fmt.Fprintf(out, "recommendation: %s (risk -%.2f pts, distance +%.2f%%)\n",
		cmp.Comparison.Recommendation, cmp.Comparison.RiskReductionPct, cmp.Comparison.DistanceIncreasePct)
}
