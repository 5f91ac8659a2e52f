package spatial

import (
	"math"

	"github.com/paulmach/orb"
)

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// maxCoverCells caps the number of cells a single bound may be split into
const maxCoverCells = 1 << 16

// EncodeGeohash encodes latitude and longitude into a geohash string
// precision: number of characters in the geohash (1-12)
func EncodeGeohash(lat, lon float64, precision int) string {
	precision = clampPrecision(precision)

	latRange := []float64{-90.0, 90.0}
	lonRange := []float64{-180.0, 180.0}

	geohash := make([]byte, 0, precision)
	bits := 0
	bit := 0
	ch := 0

	for len(geohash) < precision {
		if bit%2 == 0 {
			// Longitude
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= (1 << (4 - bits))
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			// Latitude
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		bits++
		if bits == 5 {
			geohash = append(geohash, base32[ch])
			bits = 0
			ch = 0
		}
		bit++
	}

	return string(geohash)
}

// GeohashCellDimensions returns the cell height and width in degrees for a precision
func GeohashCellDimensions(precision int) (latDeg, lonDeg float64) {
	precision = clampPrecision(precision)
	totalBits := 5 * precision
	lonBits := (totalBits + 1) / 2
	latBits := totalBits / 2
	return 180.0 / math.Exp2(float64(latBits)), 360.0 / math.Exp2(float64(lonBits))
}

// CoverBound returns the geohash cells of the given precision that intersect b.
// Cells are walked on the geohash grid so each one is encoded from its center.
func CoverBound(b orb.Bound, precision int) []string {
	latStep, lonStep := GeohashCellDimensions(precision)

	latCells := int(180.0 / latStep)
	lonCells := int(360.0 / lonStep)

	minLat := clampIndex(int(math.Floor((b.Min.Lat()+90)/latStep)), latCells)
	maxLat := clampIndex(int(math.Floor((b.Max.Lat()+90)/latStep)), latCells)
	minLon := clampIndex(int(math.Floor((b.Min.Lon()+180)/lonStep)), lonCells)
	maxLon := clampIndex(int(math.Floor((b.Max.Lon()+180)/lonStep)), lonCells)

	if (maxLat-minLat+1)*(maxLon-minLon+1) > maxCoverCells && precision > 1 {
		return CoverBound(b, precision-1)
	}

	cells := make([]string, 0, (maxLat-minLat+1)*(maxLon-minLon+1))
	for i := minLat; i <= maxLat; i++ {
		lat := -90 + (float64(i)+0.5)*latStep
		for j := minLon; j <= maxLon; j++ {
			lon := -180 + (float64(j)+0.5)*lonStep
			cells = append(cells, EncodeGeohash(lat, lon, precision))
		}
	}
	return cells
}

// GeohashCellSize returns the approximate cell size in meters for a given precision
func GeohashCellSize(precision int) float64 {
	// Approximate cell sizes at equator
	sizes := map[int]float64{
		1:  5000000,  // ±2500 km
		2:  625000,   // ±312.5 km
		3:  123000,   // ±61.5 km
		4:  19500,    // ±9.75 km
		5:  3900,     // ±1.95 km
		6:  610,      // ±305 m
		7:  120,      // ±60 m
		8:  19,       // ±9.5 m
		9:  3.7,      // ±1.85 m
		10: 0.6,      // ±30 cm
		11: 0.12,     // ±6 cm
		12: 0.019,    // ±0.95 cm
	}

	if size, ok := sizes[precision]; ok {
		return size
	}
	return 0
}

// GeohashPrecisionForDistance returns the appropriate geohash precision for a given distance
func GeohashPrecisionForDistance(distanceMeters float64) int {
	for precision := 1; precision <= 12; precision++ {
		if GeohashCellSize(precision) <= distanceMeters {
			return precision
		}
	}
	return 12
}

func clampPrecision(precision int) int {
	if precision < 1 {
		return 1
	}
	if precision > 12 {
		return 12
	}
	return precision
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
