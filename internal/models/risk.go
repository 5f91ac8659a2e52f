package models

import (
	"math"
	"slices"
)

// HighRiskThreshold is the edge risk above which a segment counts as high-risk
const HighRiskThreshold = 0.25

// RiskTable maps element ids (edge or node) to a probability in [0,1].
// A missing entry is an implicit zero.
type RiskTable map[int64]float64

// Get returns the probability for id, zero when absent
func (t RiskTable) Get(id int64) float64 {
	if t == nil {
		return 0
	}
	return t[id]
}

// Set stores a probability clamped to [0,1]. Zero values are not stored.
// Returns true when the value had to be clamped.
func (t RiskTable) Set(id int64, p float64) bool {
	clamped := ClampProbability(p)
	if clamped == 0 {
		delete(t, id)
	} else {
		t[id] = clamped
	}
	return clamped != p
}

// IDs returns the ids of all stored entries in ascending order
func (t RiskTable) IDs() []int64 {
	ids := make([]int64, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Values returns all stored probabilities ordered by id
func (t RiskTable) Values() []float64 {
	ids := t.IDs()
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = t[id]
	}
	return values
}

// Rounded returns a copy with every probability rounded to 4 decimal digits.
// Entries that round to zero are dropped.
func (t RiskTable) Rounded() RiskTable {
	out := make(RiskTable, len(t))
	for id, p := range t {
		out.Set(id, RoundProbability(p))
	}
	return out
}

// ClampProbability limits p to [0,1]; NaN becomes 0
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// RoundProbability rounds to the 4 decimal digits used in exported tables
func RoundProbability(p float64) float64 {
	return math.Round(p*1e4) / 1e4
}

// RiskEntry is one exported row of a risk table
type RiskEntry struct {
	ID          int64   `json:"id" db:"id"`
	Probability float64 `json:"probability" db:"probability"`
}

// EdgeRiskEntry is one exported row of the edge risk table
type EdgeRiskEntry struct {
	ID          int64   `json:"edge_id" db:"edge_id"`
	U           int64   `json:"u" db:"u"`
	V           int64   `json:"v" db:"v"`
	Probability float64 `json:"probability" db:"probability"`
}

// Warning is a recovered, non-fatal problem noticed while computing
type Warning struct {
	Code    string `json:"code"`
	Element string `json:"element"`
	Message string `json:"message"`
}

// Warning codes
const (
	WarnInvalidSeverity = "INVALID_SEVERITY"
	WarnClamped         = "PROBABILITY_CLAMPED"
	WarnMalformed       = "MALFORMED_ELEMENT"
)
