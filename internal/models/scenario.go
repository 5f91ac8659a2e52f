package models

import "time"

// ElementType is the kind of element a simulation draw is made for
type ElementType string

// ElementType constants
const (
	ElementEdge   ElementType = "edge"
	ElementNode   ElementType = "node"
	ElementHazard ElementType = "incident"
)

// SeverityBand is the band assigned to an active element
type SeverityBand string

// SeverityBand constants
const (
	BandHigh   SeverityBand = "high"
	BandMedium SeverityBand = "medium"
	BandLow    SeverityBand = "low"
)

// BandFor returns high above 0.30, medium above 0.15, low otherwise
func BandFor(p float64) SeverityBand {
	switch {
	case p > 0.30:
		return BandHigh
	case p > 0.15:
		return BandMedium
	default:
		return BandLow
	}
}

// Draw is one audit record of the activation process
type Draw struct {
	Type        ElementType `json:"type" db:"element_type"`
	ID          string      `json:"id" db:"element_id"`
	Probability float64     `json:"probability" db:"probability"`
	Threshold   float64     `json:"threshold" db:"threshold"`
	DrawnValue  int         `json:"drawnValue" db:"drawn_value"`
	Occurred    bool        `json:"occurred" db:"occurred"`
}

// ActiveEdge is an edge activated in a scenario
type ActiveEdge struct {
	ID          int64        `json:"id"`
	U           int64        `json:"u"`
	V           int64        `json:"v"`
	Probability float64      `json:"probability"`
	Severity    SeverityBand `json:"severity"`
}

// ActiveNode is a node activated in a scenario
type ActiveNode struct {
	ID          int64        `json:"id"`
	Probability float64      `json:"probability"`
	Severity    SeverityBand `json:"severity"`
}

// ActiveHazard is a hazard source activated in a scenario
type ActiveHazard struct {
	ID          string       `json:"id"`
	Category    Category     `json:"category"`
	Type        string       `json:"type,omitempty"`
	Description string       `json:"description,omitempty"`
	Coordinates [2]float64   `json:"coordinates"`
	Probability float64      `json:"probability"`
	Severity    SeverityBand `json:"severity"`
}

// ScenarioSummary holds aggregate counts of a scenario
type ScenarioSummary struct {
	Edges      int                  `json:"edges"`
	Nodes      int                  `json:"nodes"`
	Hazards    int                  `json:"hazards"`
	Total      int                  `json:"total"`
	Evaluated  int                  `json:"evaluated"`
	BySeverity map[SeverityBand]int `json:"bySeverity"`
	ByCategory map[Category]int     `json:"byCategory,omitempty"`
}

// Scenario is one reproducible outcome of the activation process
type Scenario struct {
	RunID         string          `json:"runId,omitempty"`
	Seed          int64           `json:"seed"`
	Timestamp     time.Time       `json:"timestamp"`
	ActiveEdges   []ActiveEdge    `json:"activeEdges"`
	ActiveNodes   []ActiveNode    `json:"activeNodes"`
	ActiveHazards []ActiveHazard  `json:"activeHazards"`
	Summary       ScenarioSummary `json:"summary"`
	Log           []Draw          `json:"log"`
}
