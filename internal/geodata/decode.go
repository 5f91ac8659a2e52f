package geodata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/jengzang/resilient-routing/internal/risk"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Report counts what a decoder accepted and skipped
type Report struct {
	Decoded  int              `json:"decoded"`
	Skipped  int              `json:"skipped"`
	Warnings []models.Warning `json:"warnings,omitempty"`
}

func (r *Report) skip(element, format string, args ...any) {
	r.Skipped++
	r.Warnings = append(r.Warnings, models.Warning{
		Code:    models.WarnMalformed,
		Element: element,
		Message: fmt.Sprintf(format, args...),
	})
}

// DecodeNodes reads Point features with an id or osmid property
func DecodeNodes(data []byte) ([]models.Node, Report, error) {
	var report Report
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, report, fmt.Errorf("failed to decode nodes: %w", err)
	}

	nodes := make([]models.Node, 0, len(fc.Features))
	for i, f := range fc.Features {
		element := fmt.Sprintf("node feature %d", i)
		id, ok := int64Prop(f.Properties, "id", "osmid")
		if !ok {
			id, ok = toInt64(f.ID)
		}
		if !ok {
			report.skip(element, "missing node id")
			continue
		}
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			report.skip(element, "node %d is not a point", id)
			continue
		}
		nodes = append(nodes, models.Node{ID: id, Point: p})
	}
	report.Decoded = len(nodes)
	return nodes, report, nil
}

// DecodeEdges reads LineString features with u and v properties. Edges without
// an explicit id are numbered after the largest explicit one, in file order.
func DecodeEdges(data []byte) ([]models.Edge, Report, error) {
	var report Report
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, report, fmt.Errorf("failed to decode edges: %w", err)
	}

	edges := make([]models.Edge, 0, len(fc.Features))
	var unnumbered []int
	var maxID int64
	for i, f := range fc.Features {
		element := fmt.Sprintf("edge feature %d", i)
		u, okU := int64Prop(f.Properties, "u", "source", "from")
		v, okV := int64Prop(f.Properties, "v", "target", "to")
		if !okU || !okV {
			report.skip(element, "missing endpoint ids")
			continue
		}

		e := models.Edge{U: u, V: v, Name: stringProp(f.Properties, "name")}
		if l, ok := floatProp(f.Properties, "length", "length_m", "weight"); ok {
			e.LengthMeters = l
		}
		e.Geometry = lineOf(f.Geometry)

		id, ok := int64Prop(f.Properties, "id", "edge_id")
		if !ok {
			id, ok = toInt64(f.ID)
		}
		if ok {
			e.ID = id
			maxID = max(maxID, id)
		} else {
			unnumbered = append(unnumbered, len(edges))
		}
		edges = append(edges, e)
	}

	for _, idx := range unnumbered {
		maxID++
		edges[idx].ID = maxID
	}

	report.Decoded = len(edges)
	return edges, report, nil
}

// DecodeHazards reads point hazards of one category. Non-point geometries are
// reduced to their centroid.
func DecodeHazards(data []byte, category models.Category) ([]models.HazardSource, Report, error) {
	var report Report
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, report, fmt.Errorf("failed to decode hazards: %w", err)
	}

	hazards := make([]models.HazardSource, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := pointOf(f.Geometry)
		if !ok {
			report.skip(fmt.Sprintf("hazard feature %d", i), "missing geometry")
			continue
		}

		id := stringProp(f.Properties, "id", "incident_id")
		if id == "" && f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		if id == "" {
			id = fmt.Sprintf("%s-%d", category, i+1)
		}

		h := models.HazardSource{
			ID:          id,
			Point:       p,
			Category:    category,
			Kind:        stringProp(f.Properties, "type", "kind", "incident_type"),
			Description: stringProp(f.Properties, "description", "descripcion", "name"),
			Severity:    risk.ParseSeverity(firstProp(f.Properties, "severity", "impact", "level")),
		}
		if r, ok := floatProp(f.Properties, "radius_m"); ok {
			h.RadiusMeters = r
		}
		if s, ok := floatProp(f.Properties, "sigma_m"); ok {
			h.SigmaMeters = s
		}
		hazards = append(hazards, h)
	}
	report.Decoded = len(hazards)
	return hazards, report, nil
}

// DecodeRiskZones derives structural-risk hazards from zone features carrying
// an incident count. Polygons are reduced to their centroid.
func DecodeRiskZones(data []byte) ([]models.HazardSource, Report, error) {
	var report Report
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, report, fmt.Errorf("failed to decode risk zones: %w", err)
	}

	zones := make([]models.HazardSource, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := pointOf(f.Geometry)
		if !ok {
			report.skip(fmt.Sprintf("zone feature %d", i), "missing geometry")
			continue
		}

		count := 1
		if c, ok := floatProp(f.Properties, "TOTAL", "total", "robos"); ok && c >= 0 {
			count = int(c)
		}

		id := stringProp(f.Properties, "id")
		if id == "" {
			id = fmt.Sprintf("zone-%d", i+1)
		}

		zones = append(zones, models.HazardSource{
			ID:          id,
			Point:       p,
			Category:    models.CategoryStructuralRisk,
			Kind:        "risk_zone",
			Description: stringProp(f.Properties, "name", "NOMBDIST", "district"),
			Severity:    risk.ZoneSeverity(count),
		})
	}
	report.Decoded = len(zones)
	return zones, report, nil
}

func lineOf(g orb.Geometry) orb.LineString {
	switch geom := g.(type) {
	case orb.LineString:
		return geom
	case orb.MultiLineString:
		var out orb.LineString
		for _, ls := range geom {
			out = append(out, ls...)
		}
		return out
	}
	return nil
}

func pointOf(g orb.Geometry) (orb.Point, bool) {
	switch geom := g.(type) {
	case nil:
		return orb.Point{}, false
	case orb.Point:
		return geom, true
	case orb.Polygon, orb.MultiPolygon:
		c, _ := planar.CentroidArea(geom)
		return c, true
	}
	return g.Bound().Center(), true
}

func firstProp(props geojson.Properties, keys ...string) any {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringProp(props geojson.Properties, keys ...string) string {
	v := firstProp(props, keys...)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}

func floatProp(props geojson.Properties, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat64(props[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func int64Prop(props geojson.Properties, keys ...string) (int64, bool) {
	for _, k := range keys {
		if id, ok := toInt64(props[k]); ok {
			return id, true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return id, err == nil
	case json.Number:
		id, err := val.Int64()
		return id, err == nil
	}
	f, ok := toFloat64(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
