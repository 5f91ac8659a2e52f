package models

import "github.com/paulmach/orb"

// Node represents a road network intersection
type Node struct {
	ID    int64     `json:"id" db:"id"`
	Point orb.Point `json:"point"` // [lon, lat] in degrees
}

// Lon returns the node longitude in degrees
func (n Node) Lon() float64 { return n.Point.Lon() }

// Lat returns the node latitude in degrees
func (n Node) Lat() float64 { return n.Point.Lat() }

// Edge represents an undirected road segment between two intersections.
// Geometry is only used for distance queries, never for routing cost.
type Edge struct {
	ID           int64          `json:"id" db:"id"`
	U            int64          `json:"u" db:"u"`
	V            int64          `json:"v" db:"v"`
	LengthMeters float64        `json:"length_m" db:"length_m"`
	Name         string         `json:"name,omitempty" db:"name"`
	Geometry     orb.LineString `json:"geometry,omitempty"`
}

// Other returns the endpoint opposite to nodeID, and false when nodeID is not an endpoint
func (e Edge) Other(nodeID int64) (int64, bool) {
	switch nodeID {
	case e.U:
		return e.V, true
	case e.V:
		return e.U, true
	}
	return 0, false
}
