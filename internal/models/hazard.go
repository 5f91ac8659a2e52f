package models

import "github.com/paulmach/orb"

// Category classifies a hazard source
type Category string

// Category constants
const (
	CategoryIncident       Category = "incident"        // live traffic incidents
	CategoryStructuralRisk Category = "structural_risk" // crime / structural risk zones
)

// SeverityKind tells which variant a Severity holds
type SeverityKind int

// SeverityKind constants
const (
	SeverityUnknown SeverityKind = iota
	SeverityCategorical
	SeverityNumeric
)

// SeverityLevel is a categorical severity
type SeverityLevel string

// SeverityLevel constants
const (
	SeverityLow    SeverityLevel = "low"
	SeverityMedium SeverityLevel = "medium"
	SeverityHigh   SeverityLevel = "high"
)

// Severity is a closed set of severity descriptors: categorical, numeric or unknown.
// Raw keeps the provider value for unknown descriptors (empty when missing).
type Severity struct {
	Kind  SeverityKind  `json:"kind"`
	Level SeverityLevel `json:"level,omitempty"`
	Value float64       `json:"value,omitempty"`
	Raw   string        `json:"raw,omitempty"`
}

// CategoricalSeverity builds a categorical severity
func CategoricalSeverity(level SeverityLevel) Severity {
	return Severity{Kind: SeverityCategorical, Level: level}
}

// NumericSeverity builds a numeric severity
func NumericSeverity(v float64) Severity {
	return Severity{Kind: SeverityNumeric, Value: v}
}

// UnknownSeverity builds an unknown severity, raw is empty when the descriptor was missing
func UnknownSeverity(raw string) Severity {
	return Severity{Kind: SeverityUnknown, Raw: raw}
}

// Missing reports whether the provider supplied no severity at all
func (s Severity) Missing() bool {
	return s.Kind == SeverityUnknown && s.Raw == ""
}

// HazardSource is a point-located threat with a severity and zone of influence
type HazardSource struct {
	ID          string    `json:"id" db:"id"`
	Point       orb.Point `json:"point"`
	Category    Category  `json:"category" db:"category"`
	Kind        string    `json:"type,omitempty" db:"kind"` // provider type, e.g. ACCIDENTE, CONGESTION
	Description string    `json:"description,omitempty" db:"description"`
	Severity    Severity  `json:"severity"`

	// Overrides, zero means use the category profile
	RadiusMeters float64 `json:"radius_m,omitempty" db:"radius_m"`
	SigmaMeters  float64 `json:"sigma_m,omitempty" db:"sigma_m"`
}

// HazardProbability is a hazard with its derived base probability
type HazardProbability struct {
	HazardSource
	Probability float64 `json:"probability" db:"probability"`
}
