package spatial

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PointDistance returns the great-circle distance in meters between two [lon, lat] points
func PointDistance(a, b orb.Point) float64 {
	return HaversineDistance(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// PolylineDistance returns the minimum great-circle distance in meters from p to any
// segment of line. An empty line is infinitely far away.
func PolylineDistance(p orb.Point, line orb.LineString) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return PointDistance(p, line[0])
	}

	x := toS2(p)
	best := math.Inf(1)
	prev := toS2(line[0])
	for _, q := range line[1:] {
		cur := toS2(q)
		d := s2.DistanceFromSegment(x, prev, cur).Radians() * EarthRadiusMeters
		if d < best {
			best = d
		}
		prev = cur
	}
	return best
}

// GeometryDistance returns the exact distance in meters from p to a point or polyline.
// Other geometries fall back to the center of their bounding box.
func GeometryDistance(p orb.Point, g orb.Geometry) float64 {
	switch geom := g.(type) {
	case orb.Point:
		return PointDistance(p, geom)
	case orb.LineString:
		return PolylineDistance(p, geom)
	case nil:
		return math.Inf(1)
	default:
		return PointDistance(p, geom.Bound().Center())
	}
}

func toS2(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}

// ValidPoint reports whether p is a finite geographic coordinate
func ValidPoint(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)
