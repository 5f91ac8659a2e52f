package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/resilient-routing/internal/models"
)

// levelSynonyms maps lower-cased provider labels to categorical levels
var levelSynonyms = map[string]models.SeverityLevel{
	"high":     models.SeverityHigh,
	"alta":     models.SeverityHigh,
	"alto":     models.SeverityHigh,
	"grave":    models.SeverityHigh,
	"severe":   models.SeverityHigh,
	"critical": models.SeverityHigh,
	"critico":  models.SeverityHigh,
	"crítico":  models.SeverityHigh,
	"major":    models.SeverityHigh,

	"medium":   models.SeverityMedium,
	"media":    models.SeverityMedium,
	"medio":    models.SeverityMedium,
	"moderate": models.SeverityMedium,
	"moderado": models.SeverityMedium,
	"moderada": models.SeverityMedium,

	"low":   models.SeverityLow,
	"baja":  models.SeverityLow,
	"bajo":  models.SeverityLow,
	"leve":  models.SeverityLow,
	"minor": models.SeverityLow,
}

// ParseSeverity turns a loosely typed provider value into a Severity.
// Numbers and numeric strings become numeric, known labels categorical,
// anything else unknown with the raw value kept.
func ParseSeverity(v any) models.Severity {
	switch val := v.(type) {
	case nil:
		return models.UnknownSeverity("")
	case float64:
		return models.NumericSeverity(val)
	case float32:
		return models.NumericSeverity(float64(val))
	case int:
		return models.NumericSeverity(float64(val))
	case int64:
		return models.NumericSeverity(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return models.NumericSeverity(f)
		}
		return models.UnknownSeverity(val.String())
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "" {
			return models.UnknownSeverity("")
		}
		if level, ok := levelSynonyms[s]; ok {
			return models.CategoricalSeverity(level)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return models.NumericSeverity(f)
		}
		return models.UnknownSeverity(val)
	default:
		return models.UnknownSeverity(fmt.Sprint(val))
	}
}

// BaseProbability maps a hazard's severity to p0 in [0,1] using its category profile.
// The returned warning is non-nil when the severity was unrecognized or out of range.
func BaseProbability(h models.HazardSource, prof Profile) (float64, *models.Warning) {
	element := "hazard:" + h.ID

	switch h.Severity.Kind {
	case models.SeverityCategorical:
		switch h.Severity.Level {
		case models.SeverityHigh:
			return prof.High, nil
		case models.SeverityMedium:
			return prof.Medium, nil
		case models.SeverityLow:
			return prof.Low, nil
		}
		return prof.Unrecognized, &models.Warning{
			Code:    models.WarnInvalidSeverity,
			Element: element,
			Message: fmt.Sprintf("unknown severity level %q", h.Severity.Level),
		}

	case models.SeverityNumeric:
		v := h.Severity.Value
		// values above 1 are on a 0-100 scale
		if v > 1 {
			v /= 100
		}
		p := models.ClampProbability(v)
		if p != v {
			return p, &models.Warning{
				Code:    models.WarnClamped,
				Element: element,
				Message: fmt.Sprintf("severity %v clamped to %v", h.Severity.Value, p),
			}
		}
		return p, nil
	}

	if h.Severity.Missing() {
		kind := strings.ToLower(h.Kind)
		for _, fb := range prof.KindFallbacks {
			for _, kw := range fb.Keywords {
				if kw != "" && strings.Contains(kind, strings.ToLower(kw)) {
					return fb.Probability, nil
				}
			}
		}
		return prof.Default, nil
	}

	return prof.Unrecognized, &models.Warning{
		Code:    models.WarnInvalidSeverity,
		Element: element,
		Message: fmt.Sprintf("unrecognized severity %q", h.Severity.Raw),
	}
}

// ZoneSeverity maps the incident count of a risk zone to a severity band
func ZoneSeverity(count int) models.Severity {
	switch {
	case count <= 5:
		return models.CategoricalSeverity(models.SeverityLow)
	case count <= 15:
		return models.CategoricalSeverity(models.SeverityMedium)
	default:
		return models.CategoricalSeverity(models.SeverityHigh)
	}
}

// GaussianWeight decays p0 with distance: p0 * exp(-d^2 / 2 sigma^2)
func GaussianWeight(p0, d, sigma float64) float64 {
	if sigma <= 0 {
		if d == 0 {
			return p0
		}
		return 0
	}
	return p0 * math.Exp(-(d*d)/(2*sigma*sigma))
}

// Aggregate combines independent contributions with the probabilistic OR 1 - prod(1 - w)
func Aggregate(weights []float64) float64 {
	switch len(weights) {
	case 0:
		return 0
	case 1:
		return models.ClampProbability(weights[0])
	}
	miss := 1.0
	for _, w := range weights {
		miss *= 1 - models.ClampProbability(w)
	}
	return models.ClampProbability(1 - miss)
}
