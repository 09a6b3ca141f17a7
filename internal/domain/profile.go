package domain

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile is the versioned risk-tuning data: scoring weights, bucket
// thresholds, property aliases, and the hazard source catalog. Weights and
// thresholds have been retuned several times in this system's history, so
// they live in data rather than in code.
type Profile struct {
	Version       int     `yaml:"version"`
	MarginDegrees float64 `yaml:"margin_degrees"`

	Weights Weights      `yaml:"weights"`
	Flood   FloodRules   `yaml:"flood"`
	Coastal CoastalRules `yaml:"coastal"`
	Fire    FireRules    `yaml:"fire"`
	Seismic SeismicRules `yaml:"seismic"`
	Erosion ErosionRules `yaml:"erosion"`
	Levels  LevelBands   `yaml:"levels"`

	Sources []HazardSource `yaml:"sources"`
}

// Weights are the per-family multipliers of the composite score. Erosion is
// informational only and carries no weight.
type Weights struct {
	Flood   float64 `yaml:"flood"`
	Coastal float64 `yaml:"coastal"`
	Fire    float64 `yaml:"fire"`
	Seismic float64 `yaml:"seismic"`
}

// FloodRules configure raster-value interpretation and per-period points.
type FloodRules struct {
	FieldAliases []string `yaml:"field_aliases"`
	// NoDataMax is the sentinel threshold: sampled values at or below it
	// mean the point is outside the mapped area.
	NoDataMax    float64            `yaml:"no_data_max"`
	PeriodScores map[string]float64 `yaml:"period_scores"`
}

// CoastalRules configure DPMT membership points.
type CoastalRules struct {
	PresencePoints float64 `yaml:"presence_points"`
}

// FireRules configure fire-frequency bucketing and presence points.
type FireRules struct {
	FieldAliases   []string `yaml:"field_aliases"`
	PresencePoints float64  `yaml:"presence_points"`
	LowMax         float64  `yaml:"low_max"`    // frequency below this is low
	MediumMax      float64  `yaml:"medium_max"` // below this is medium, at or above high
}

// SeismicRules configure ground-acceleration bucketing and presence points.
type SeismicRules struct {
	FieldAliases   []string `yaml:"field_aliases"`
	PresencePoints float64  `yaml:"presence_points"`
	LowMax         float64  `yaml:"low_max"`
	MediumMax      float64  `yaml:"medium_max"`
}

// ErosionRules configure bucketing of the text-raster erosion value.
type ErosionRules struct {
	LowMax    float64 `yaml:"low_max"`
	MediumMax float64 `yaml:"medium_max"`
}

// LevelBands map the composite score to the final 3-level classification.
// Both boundaries are inclusive on the lower band: a score of exactly
// LowMax classifies as level 1 and exactly MediumMax as level 2.
type LevelBands struct {
	LowMax    float64 `yaml:"low_max"`
	MediumMax float64 `yaml:"medium_max"`
}

// Validate checks the profile for the mistakes that a hand-edited file is
// likely to contain.
func (p *Profile) Validate() error {
	if p.MarginDegrees <= 0 {
		return fmt.Errorf("profile: margin_degrees must be positive, got %g", p.MarginDegrees)
	}
	if p.Levels.LowMax <= 0 || p.Levels.MediumMax <= p.Levels.LowMax {
		return fmt.Errorf("profile: level bands must satisfy 0 < low_max < medium_max, got %g/%g",
			p.Levels.LowMax, p.Levels.MediumMax)
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("profile: no hazard sources configured")
	}
	seen := make(map[string]bool, len(p.Sources))
	for _, src := range p.Sources {
		if src.Family == "" || src.BaseURL == "" || src.Layer == "" {
			return fmt.Errorf("profile: source %q missing family, base_url, or layer", src.Slot())
		}
		if seen[src.Slot()] {
			return fmt.Errorf("profile: duplicate source slot %q", src.Slot())
		}
		seen[src.Slot()] = true
	}
	return nil
}

// Note renders the human-readable weighting note included in every response.
func (p *Profile) Note() string {
	return fmt.Sprintf(
		"Riesgo calculado (Inundación %.0f%%, DPMT %.0f%%, Incendios %.0f%%, Sismico %.0f%%).",
		p.Weights.Flood*100, p.Weights.Coastal*100, p.Weights.Fire*100, p.Weights.Seismic*100,
	)
}

//go:embed default_profile.yaml
var defaultProfileYAML []byte

var loadDefaultProfile = sync.OnceValue(func() Profile {
	var p Profile
	if err := yaml.Unmarshal(defaultProfileYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded default profile: %v", err))
	}
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("embedded default profile: %v", err))
	}
	return p
})

// DefaultProfile returns the embedded profile matching the production layer
// catalog and the historical scoring constants.
func DefaultProfile() Profile {
	return loadDefaultProfile()
}
