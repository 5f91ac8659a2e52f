package spatial

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

const (
	// linearScanLimit is the size below which Nearest scans every element
	linearScanLimit = 64
	// nearestSeeds is how many quadtree candidates seed an exact nearest search
	nearestSeeds = 8
	// maxSearchRadius bounds the expanding nearest search (half the equator)
	maxSearchRadius = math.Pi * EarthRadiusMeters
)

// Element is an indexed geometry: a point (node) or a polyline (edge)
type Element struct {
	ID       int64
	Geometry orb.Geometry
}

// Candidate is an element with its exact distance to a query point
type Candidate struct {
	Element
	DistanceMeters float64
}

// Index is a static spatial index over points and polylines. Range queries
// are bucketed on a geohash grid; nearest queries over pure point sets are
// seeded from a quadtree. An Index is read-only once built.
type Index struct {
	precision int
	elements  []Element
	bounds    []orb.Bound
	cells     map[string][]int
	oversized []int // elements too large to bucket at precision
	tree      *quadtree.Quadtree
}

type indexedPoint orb.Point

func (p indexedPoint) Point() orb.Point { return orb.Point(p) }

// NewIndex builds an index whose buckets suit queries of about cellMeters radius
func NewIndex(elements []Element, cellMeters float64) *Index {
	ix := &Index{
		precision: GeohashPrecisionForDistance(cellMeters),
		elements:  elements,
		bounds:    make([]orb.Bound, len(elements)),
		cells:     make(map[string][]int),
	}

	allPoints := len(elements) > 0
	var extent orb.Bound
	for i, el := range elements {
		b := BoundOf(el.Geometry)
		ix.bounds[i] = b
		cells := CoverBound(b, ix.precision)
		if len(cells[0]) != ix.precision {
			ix.oversized = append(ix.oversized, i)
		} else {
			for _, cell := range cells {
				ix.cells[cell] = append(ix.cells[cell], i)
			}
		}

		if _, ok := el.Geometry.(orb.Point); !ok {
			allPoints = false
		}
		if i == 0 {
			extent = b
		} else {
			extent = extent.Union(b)
		}
	}

	if allPoints && len(elements) > linearScanLimit {
		ix.tree = quadtree.New(extent.Pad(1e-6))
		for _, el := range elements {
			// points always fall inside the padded extent
			_ = ix.tree.Add(indexedPoint(el.Geometry.(orb.Point)))
		}
	}

	return ix
}

// Len returns the number of indexed elements
func (ix *Index) Len() int {
	return len(ix.elements)
}

// RangeQuery returns the elements whose bounding box intersects the bounding box
// of the disc of radius meters around center. Candidates are coarse: callers
// must check the exact distance. Results keep insertion order.
func (ix *Index) RangeQuery(center orb.Point, radiusMeters float64) []Element {
	idxs := ix.rangeIndexes(center, radiusMeters)
	out := make([]Element, len(idxs))
	for i, idx := range idxs {
		out[i] = ix.elements[idx]
	}
	return out
}

// Within returns the elements whose exact distance to center is at most radius meters
func (ix *Index) Within(center orb.Point, radiusMeters float64) []Candidate {
	var out []Candidate
	for _, idx := range ix.rangeIndexes(center, radiusMeters) {
		el := ix.elements[idx]
		d := GeometryDistance(center, el.Geometry)
		if d <= radiusMeters {
			out = append(out, Candidate{Element: el, DistanceMeters: d})
		}
	}
	return out
}

// Nearest returns the element closest to p and its distance in meters.
// Ties resolve to the element inserted first.
func (ix *Index) Nearest(p orb.Point) (int64, float64, bool) {
	if len(ix.elements) == 0 {
		return 0, 0, false
	}

	if len(ix.elements) <= linearScanLimit {
		return ix.closest(p, nil)
	}

	// Find any upper bound on the nearest distance, then confirm it with an
	// exact range query so the answer does not depend on planar seeding.
	bound := math.Inf(1)
	if ix.tree != nil {
		for _, ptr := range ix.tree.KNearest(nil, p, nearestSeeds) {
			d := PointDistance(p, ptr.Point())
			if d < bound {
				bound = d
			}
		}
	} else {
		for r := GeohashCellSize(ix.precision); r <= maxSearchRadius; r *= 2 {
			idxs := ix.rangeIndexes(p, r)
			if len(idxs) == 0 {
				continue
			}
			for _, idx := range idxs {
				if d := GeometryDistance(p, ix.elements[idx].Geometry); d < bound {
					bound = d
				}
			}
			break
		}
	}

	if math.IsInf(bound, 1) {
		return ix.closest(p, nil)
	}
	// pad so candidates exactly at the bound survive rounding in the disc bound
	return ix.closest(p, ix.rangeIndexes(p, bound*1.001+1))
}

// closest scans the given element indexes (all when nil) for the minimum distance
func (ix *Index) closest(p orb.Point, idxs []int) (int64, float64, bool) {
	bestIdx := -1
	best := math.Inf(1)
	visit := func(i int) {
		d := GeometryDistance(p, ix.elements[i].Geometry)
		if d < best {
			best = d
			bestIdx = i
		}
	}

	if idxs == nil {
		for i := range ix.elements {
			visit(i)
		}
	} else {
		for _, i := range idxs {
			visit(i)
		}
	}

	if bestIdx < 0 {
		return 0, 0, false
	}
	return ix.elements[bestIdx].ID, best, true
}

// rangeIndexes returns deduplicated, sorted element indexes intersecting the disc bound
func (ix *Index) rangeIndexes(center orb.Point, radiusMeters float64) []int {
	query := DiscBound(center, radiusMeters)

	var idxs []int
	cells := CoverBound(query, ix.precision)
	if len(cells[0]) != ix.precision {
		// the query spans more cells than a cover may hold
		for idx, b := range ix.bounds {
			if b.Intersects(query) {
				idxs = append(idxs, idx)
			}
		}
		return idxs
	}

	seen := make(map[int]struct{})
	visit := func(idx int) {
		if _, ok := seen[idx]; ok {
			return
		}
		seen[idx] = struct{}{}
		if ix.bounds[idx].Intersects(query) {
			idxs = append(idxs, idx)
		}
	}
	for _, cell := range cells {
		for _, idx := range ix.cells[cell] {
			visit(idx)
		}
	}
	for _, idx := range ix.oversized {
		visit(idx)
	}
	slices.Sort(idxs)
	return idxs
}
