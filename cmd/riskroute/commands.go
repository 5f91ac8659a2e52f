package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jengzang/resilient-routing/internal/analysis"
	"github.com/jengzang/resilient-routing/internal/config"
	"github.com/jengzang/resilient-routing/internal/database"
	"github.com/jengzang/resilient-routing/internal/geodata"
	"github.com/jengzang/resilient-routing/internal/logger"
	"github.com/jengzang/resilient-routing/internal/metrics"
	"github.com/jengzang/resilient-routing/internal/service"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand shares
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Registry
	db      *sql.DB
	svc     *service.PipelineService

	// persistent flags
	dataDir    string
	dbPath     string
	metricsOut string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "riskroute",
		Short: "Risk-aware pedestrian routing over a road network",
		Long: `riskroute spreads live incident and risk-zone hazards onto a road graph,
draws reproducible threat scenarios and compares the shortest route with
a risk-aware alternative.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory with the input GeoJSON files and outputs (default $DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path, empty to disable persistence (default $DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile (default $METRICS_PATH)")

	rootCmd.AddCommand(
		a.propagateCmd(),
		a.simulateCmd(),
		a.routeCmd(),
		a.compareCmd(),
		a.runCmd(),
	)
	// post-run hooks do not run when RunE fails
	for _, sub := range rootCmd.Commands() {
		if sub.RunE != nil {
			sub.RunE = a.withTeardown(sub.RunE)
		}
	}
	return rootCmd
}

func (a *app) withTeardown(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		return errors.Join(err, a.teardown())
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("metrics-out") {
		cfg.MetricsPath = a.metricsOut
	}
	a.cfg = cfg
	a.log = logger.New(cfg)
	a.metrics = metrics.NewRegistry()

	if cfg.DBPath != "" {
		a.db, err = database.OpenAndMigrate(cmd.Context(), database.Config{Path: cfg.DBPath}, a.log.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	a.svc = service.NewPipelineService(a.db, a.log.Logger)
	return nil
}

// teardown closes the database and writes the metrics textfile, whether or
// not the command succeeded
func (a *app) teardown() error {
	defer a.log.Sync()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", zap.Error(err))
		}
		a.db = nil
	}
	if a.cfg.MetricsPath != "" {
		if err := a.metrics.WriteToTextfile(a.cfg.MetricsPath); err != nil {
			return err
		}
	}
	return nil
}

// newRun loads the data directory and wraps it in a run configured from a.cfg
func (a *app) newRun(stops []orb.Point) (*analysis.Run, error) {
	ds, err := geodata.LoadDir(a.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	profiles, err := a.cfg.Profiles()
	if err != nil {
		return nil, err
	}

	params := analysis.DefaultParams()
	params.Profiles = profiles
	params.Workers = a.cfg.PropagationWorkers
	params.Penalty = a.cfg.RiskPenalty
	params.Threshold = a.cfg.RecommendThreshold
	params.Stops = stops
	return analysis.NewRun(ds, params, a.log.Logger, a.metrics), nil
}

// execute runs stages on run and writes its outputs to the data directory
func (a *app) execute(ctx context.Context, cmd *cobra.Command, run *analysis.Run, stages ...string) error {
	if err := a.svc.Execute(ctx, run, stages...); err != nil {
		return err
	}
	return a.export(cmd, run)
}

func (a *app) export(cmd *cobra.Command, run *analysis.Run) error {
	written, err := a.svc.Export(run, a.cfg.DataDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s wrote %s\n", run.ID, strings.Join(written, ", "))
	return nil
}

// parsePoint reads a "lon,lat" pair
func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("invalid coordinate %q, want lon,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("coordinate %q out of range", s)
	}
	return orb.Point{lon, lat}, nil
}

// stopsFlags are the --from, --to and --via flags of the routing commands
type stopsFlags struct {
	from, to, via string
}

func (f *stopsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "origin as lon,lat")
	cmd.Flags().StringVar(&f.to, "to", "", "destination as lon,lat")
	cmd.Flags().StringVar(&f.via, "via", "", "waypoints as lon,lat;lon,lat")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

// points returns origin, waypoints and destination in travel order
func (f *stopsFlags) points() ([]orb.Point, error) {
	from, err := parsePoint(f.from)
	if err != nil {
		return nil, err
	}
	stops := []orb.Point{from}
	for _, s := range strings.Split(f.via, ";") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		stops = append(stops, p)
	}
	to, err := parsePoint(f.to)
	if err != nil {
		return nil, err
	}
	return append(stops, to), nil
}
