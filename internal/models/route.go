package models

// Recommendation constants
const (
	RecommendOptimal   = "optimal"
	RecommendResilient = "resilient"
)

// WalkingMetersPerMinute is the speed used for time estimates (5 km/h)
const WalkingMetersPerMinute = 83.333

// Route is a connected walk over edges from Source to Target, possibly via stops
type Route struct {
	Source       int64   `json:"source"`
	Target       int64   `json:"target"`
	Stops        []int64 `json:"stops,omitempty"` // source, waypoints..., target
	Edges        []int64 `json:"edges"`
	Nodes        []int64 `json:"nodes"`
	LengthMeters float64 `json:"lengthMeters"`
	Cost         float64 `json:"cost"`
}

// RiskReport holds the aggregate risk metrics of a route
type RiskReport struct {
	LengthMeters     float64 `json:"lengthMeters"`
	AvgEdgeRisk      float64 `json:"avgEdgeRisk"`
	AvgNodeRisk      float64 `json:"avgNodeRisk"`
	CombinedScore    float64 `json:"combinedScore"`
	RiskPercentage   float64 `json:"riskPercentage"`
	HighRiskSegments int     `json:"highRiskSegments"`
	TotalSegments    int     `json:"totalSegments"`
	DistinctNodes    int     `json:"distinctNodes"`
}

// Comparison compares a candidate route against the distance-optimal one
type Comparison struct {
	RiskReductionPct    float64 `json:"riskReductionPct"`
	DistanceIncreasePct float64 `json:"distanceIncreasePct"`
	Recommendation      string  `json:"recommendation"`
}

// Location is an origin or destination of a comparison
type Location struct {
	Name   string  `json:"name,omitempty"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	NodeID int64   `json:"nodeId"`
}

// RouteSummary is one side of a route comparison
type RouteSummary struct {
	LengthMeters float64    `json:"lengthMeters"`
	TimeMinutes  float64    `json:"timeMinutes"`
	RiskReport   RiskReport `json:"riskReport"`
	Edges        []int64    `json:"edges"`
}

// RouteComparison is the full output of comparing the optimal and resilient routes
type RouteComparison struct {
	RunID          string       `json:"runId,omitempty"`
	Origin         Location     `json:"origin"`
	Destination    Location     `json:"destination"`
	OptimalRoute   RouteSummary `json:"optimalRoute"`
	ResilientRoute RouteSummary `json:"resilientRoute"`
	Comparison     Comparison   `json:"comparison"`
}
