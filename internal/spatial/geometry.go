package spatial

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// boundPadDegrees absorbs float error at the edge of a disc bound
const boundPadDegrees = 1e-9

// PathLength calculates the total length of a path (sequence of points) in meters
func PathLength(line orb.LineString) float64 {
	if len(line) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(line); i++ {
		totalDist += PointDistance(line[i-1], line[i])
	}

	return totalDist
}

// DiscBound returns a bounding box that contains every point within radius meters
// of center. The disc is the s2 cap of the same angular radius the distance
// functions measure with, so nothing within radius falls outside the box.
func DiscBound(center orb.Point, radiusMeters float64) orb.Bound {
	if radiusMeters <= 0 {
		return center.Bound()
	}

	angle := s1.Angle(radiusMeters / EarthRadiusMeters)
	rect := s2.CapFromCenterAngle(toS2(center), angle).RectBound()

	minLon, maxLon := rect.Lo().Lng.Degrees(), rect.Hi().Lng.Degrees()
	if rect.Lng.IsInverted() || rect.Lng.IsFull() {
		// crosses the antimeridian or covers a pole
		minLon, maxLon = -180, 180
	}
	b := orb.Bound{
		Min: orb.Point{minLon, rect.Lo().Lat.Degrees()},
		Max: orb.Point{maxLon, rect.Hi().Lat.Degrees()},
	}
	return clampBound(b.Pad(boundPadDegrees))
}

func clampBound(b orb.Bound) orb.Bound {
	b.Min[0], b.Max[0] = max(b.Min[0], -180), min(b.Max[0], 180)
	b.Min[1], b.Max[1] = max(b.Min[1], -90), min(b.Max[1], 90)
	return b
}

// BoundOf returns the bounding box of a point or polyline geometry
func BoundOf(g orb.Geometry) orb.Bound {
	if g == nil {
		return orb.Bound{}
	}
	return g.Bound()
}
