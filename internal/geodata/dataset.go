package geodata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jengzang/resilient-routing/internal/models"
)

// Conventional input and output file names inside a data directory
const (
	FileNodes     = "nodes.geojson"
	FileEdges     = "edges.geojson"
	FileIncidents = "live_incidents.geojson"
	FileRiskZones = "risk_zones.geojson"

	FileEdgeRisk      = "edge_probabilities.json"
	FileNodeRisk      = "node_probabilities.json"
	FileHazards       = "live_incidents_prob.geojson"
	FileActiveThreats = "active_threats.json"
	FileSimulationLog = "simulation_log.json"
	FileRoute         = "route_osm.geojson"
	FileComparison    = "route_comparison.json"
)

// LoadReport aggregates the decoder reports of a data directory
type LoadReport struct {
	Nodes     Report `json:"nodes"`
	Edges     Report `json:"edges"`
	Incidents Report `json:"incidents"`
	Zones     Report `json:"zones"`
}

// Skipped returns the number of features dropped across all files
func (r LoadReport) Skipped() int {
	return r.Nodes.Skipped + r.Edges.Skipped + r.Incidents.Skipped + r.Zones.Skipped
}

// Dataset is the provider input of one run
type Dataset struct {
	Nodes   []models.Node
	Edges   []models.Edge
	Hazards []models.HazardSource // incidents followed by risk zones
	Report  LoadReport
}

// LoadDir reads the conventional file set from dir. The risk zone file is optional.
func LoadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}

	data, err := os.ReadFile(filepath.Join(dir, FileNodes))
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	if ds.Nodes, ds.Report.Nodes, err = DecodeNodes(data); err != nil {
		return nil, err
	}

	if data, err = os.ReadFile(filepath.Join(dir, FileEdges)); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	if ds.Edges, ds.Report.Edges, err = DecodeEdges(data); err != nil {
		return nil, err
	}

	if data, err = os.ReadFile(filepath.Join(dir, FileIncidents)); err != nil {
		return nil, fmt.Errorf("failed to read incidents: %w", err)
	}
	incidents, report, err := DecodeHazards(data, models.CategoryIncident)
	if err != nil {
		return nil, err
	}
	ds.Report.Incidents = report
	ds.Hazards = append(ds.Hazards, incidents...)

	data, err = os.ReadFile(filepath.Join(dir, FileRiskZones))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read risk zones: %w", err)
	default:
		zones, report, err := DecodeRiskZones(data)
		if err != nil {
			return nil, err
		}
		ds.Report.Zones = report
		ds.Hazards = append(ds.Hazards, zones...)
	}

	return ds, nil
}

// WriteFile writes data to name inside dir, creating dir when needed
func WriteFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
