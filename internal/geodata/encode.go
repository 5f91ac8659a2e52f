package geodata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jengzang/resilient-routing/internal/graph"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/paulmach/orb/geojson"
)

// EdgeEntries exports the edge table in ascending id order, rounded to 4 digits.
// Entries that round to zero are omitted. Endpoints come from g when known.
func EdgeEntries(table models.RiskTable, g *graph.Graph) []models.EdgeRiskEntry {
	rounded := table.Rounded()
	out := make([]models.EdgeRiskEntry, 0, len(rounded))
	for _, id := range rounded.IDs() {
		entry := models.EdgeRiskEntry{ID: id, Probability: rounded[id]}
		if g != nil {
			if e, ok := g.Edge(id); ok {
				entry.U, entry.V = e.U, e.V
			}
		}
		out = append(out, entry)
	}
	return out
}

// NodeEntries exports the node table in ascending id order, rounded to 4 digits
func NodeEntries(table models.RiskTable) []models.RiskEntry {
	rounded := table.Rounded()
	out := make([]models.RiskEntry, 0, len(rounded))
	for _, id := range rounded.IDs() {
		out = append(out, models.RiskEntry{ID: id, Probability: rounded[id]})
	}
	return out
}

// EdgeTable rebuilds a risk table from exported rows
func EdgeTable(entries []models.EdgeRiskEntry) models.RiskTable {
	t := make(models.RiskTable, len(entries))
	for _, e := range entries {
		t.Set(e.ID, e.Probability)
	}
	return t
}

// NodeTable rebuilds a risk table from exported rows
func NodeTable(entries []models.RiskEntry) models.RiskTable {
	t := make(models.RiskTable, len(entries))
	for _, e := range entries {
		t.Set(e.ID, e.Probability)
	}
	return t
}

// EncodeHazards writes hazards with their base probability as a FeatureCollection
func EncodeHazards(hazards []models.HazardProbability) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, h := range hazards {
		f := geojson.NewFeature(h.Point)
		f.ID = h.ID
		f.Properties["id"] = h.ID
		f.Properties["category"] = string(h.Category)
		f.Properties["probability"] = models.RoundProbability(h.Probability)
		if h.Kind != "" {
			f.Properties["type"] = h.Kind
		}
		if h.Description != "" {
			f.Properties["description"] = h.Description
		}
		if s := SeverityLabel(h.Severity); s != "" {
			f.Properties["severity"] = s
		}
		if h.RadiusMeters > 0 {
			f.Properties["radius_m"] = h.RadiusMeters
		}
		if h.SigmaMeters > 0 {
			f.Properties["sigma_m"] = h.SigmaMeters
		}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// SeverityLabel renders a severity back into its provider form
func SeverityLabel(s models.Severity) string {
	switch s.Kind {
	case models.SeverityCategorical:
		return string(s.Level)
	case models.SeverityNumeric:
		return strconv.FormatFloat(s.Value, 'f', -1, 64)
	}
	return s.Raw
}

// activeThreats is the scenario without its audit log
type activeThreats struct {
	RunID         string                 `json:"runId,omitempty"`
	Seed          int64                  `json:"seed"`
	Timestamp     time.Time              `json:"timestamp"`
	ActiveEdges   []models.ActiveEdge    `json:"activeEdges"`
	ActiveNodes   []models.ActiveNode    `json:"activeNodes"`
	ActiveHazards []models.ActiveHazard  `json:"activeHazards"`
	Summary       models.ScenarioSummary `json:"summary"`
}

type simulationLog struct {
	RunID     string        `json:"runId,omitempty"`
	Seed      int64         `json:"seed"`
	Timestamp time.Time     `json:"timestamp"`
	Log       []models.Draw `json:"log"`
}

// EncodeActiveThreats writes the activation outcome of a scenario
func EncodeActiveThreats(sc *models.Scenario) ([]byte, error) {
	return json.MarshalIndent(activeThreats{
		RunID:         sc.RunID,
		Seed:          sc.Seed,
		Timestamp:     sc.Timestamp,
		ActiveEdges:   sc.ActiveEdges,
		ActiveNodes:   sc.ActiveNodes,
		ActiveHazards: sc.ActiveHazards,
		Summary:       sc.Summary,
	}, "", "  ")
}

// EncodeSimulationLog writes the full per-element audit log of a scenario
func EncodeSimulationLog(sc *models.Scenario) ([]byte, error) {
	log := sc.Log
	if log == nil {
		log = []models.Draw{}
	}
	return json.MarshalIndent(simulationLog{
		RunID:     sc.RunID,
		Seed:      sc.Seed,
		Timestamp: sc.Timestamp,
		Log:       log,
	}, "", "  ")
}

// EncodeRoute writes a route as a FeatureCollection of its edges in travel order
func EncodeRoute(route *models.Route, g *graph.Graph) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for seq, id := range route.Edges {
		e, ok := g.Edge(id)
		if !ok {
			return nil, fmt.Errorf("route edge %d is not in the graph", id)
		}
		f := geojson.NewFeature(e.Geometry)
		f.ID = id
		f.Properties["edge_id"] = id
		f.Properties["seq"] = seq
		f.Properties["u"] = e.U
		f.Properties["v"] = e.V
		f.Properties["length_m"] = e.LengthMeters
		if e.Name != "" {
			f.Properties["name"] = e.Name
		}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// EncodeJSON writes any result record as indented JSON
func EncodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
