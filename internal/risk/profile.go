package risk

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jengzang/resilient-routing/internal/models"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// KindFallback maps hazard kinds containing any keyword to a base probability.
// It applies only when the severity descriptor is missing.
type KindFallback struct {
	Keywords    []string `yaml:"keywords" validate:"required,min=1,dive,required"`
	Probability float64  `yaml:"probability" validate:"gte=0,lte=1"`
}

// Profile holds the propagation parameters of one hazard category
type Profile struct {
	RadiusMeters float64 `yaml:"radius_m" validate:"gt=0"`
	SigmaMeters  float64 `yaml:"sigma_m" validate:"gt=0"`

	High   float64 `yaml:"high" validate:"gte=0,lte=1"`
	Medium float64 `yaml:"medium" validate:"gte=0,lte=1"`
	Low    float64 `yaml:"low" validate:"gte=0,lte=1"`

	// Default applies when the severity is missing, Unrecognized when it cannot be parsed
	Default      float64 `yaml:"default" validate:"gte=0,lte=1"`
	Unrecognized float64 `yaml:"unrecognized" validate:"gte=0,lte=1"`

	KindFallbacks []KindFallback `yaml:"kind_fallbacks" validate:"dive"`
}

// Profiles maps hazard categories to their parameters
type Profiles map[models.Category]Profile

// DefaultProfiles returns the built-in profiles for incidents and structural risk zones
func DefaultProfiles() Profiles {
	return Profiles{
		models.CategoryIncident: {
			RadiusMeters: 1000,
			SigmaMeters:  200,
			High:         0.45,
			Medium:       0.25,
			Low:          0.10,
			Default:      0.15,
			Unrecognized: 0.18,
			KindFallbacks: []KindFallback{
				{Keywords: []string{"accident", "collision", "accidente", "choque"}, Probability: 0.30},
				{Keywords: []string{"congestion", "traffic", "trafico", "tráfico"}, Probability: 0.20},
				{Keywords: []string{"closure", "cierre", "closed"}, Probability: 0.40},
			},
		},
		models.CategoryStructuralRisk: {
			RadiusMeters: 500,
			SigmaMeters:  150,
			High:         0.30,
			Medium:       0.15,
			Low:          0.05,
			Default:      0.05,
			Unrecognized: 0.05,
		},
	}
}

// For returns the profile of a category, falling back to the incident profile
func (p Profiles) For(c models.Category) Profile {
	if prof, ok := p[c]; ok {
		return prof
	}
	if prof, ok := p[models.CategoryIncident]; ok {
		return prof
	}
	return DefaultProfiles()[models.CategoryIncident]
}

// Validate checks every profile
func (p Profiles) Validate() error {
	for category, prof := range p {
		if err := validate.Struct(prof); err != nil {
			return fmt.Errorf("invalid profile %q: %w", category, formatValidationError(err))
		}
	}
	return nil
}

// LoadProfiles reads a YAML file of per-category profiles and overlays it on the defaults.
// An empty path returns the defaults.
//
//	incident:
//	  radius_m: 800
//	  sigma_m: 180
//	structural_risk:
//	  high: 0.35
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk profile: %w", err)
	}

	// decode each category over its default so partial overrides keep the rest
	var raw map[models.Category]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse risk profile: %w", err)
	}
	for category, node := range raw {
		prof, known := profiles[category]
		if !known {
			prof = DefaultProfiles()[models.CategoryIncident]
			prof.KindFallbacks = nil
		}
		if err := node.Decode(&prof); err != nil {
			return nil, fmt.Errorf("failed to parse profile %q: %w", category, err)
		}
		profiles[category] = prof
	}

	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", e.Namespace(), e.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
