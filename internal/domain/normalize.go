package domain

import (
	"regexp"
	"strconv"
)

// FloodState classifies one return period's raster sample.
type FloodState string

const (
	FloodNoData     FloodState = "no_data"
	FloodNotFlooded FloodState = "not_flooded"
	FloodFlooded    FloodState = "flooded"
)

// FloodSignal is the normalized flood classification for one return period.
type FloodSignal struct {
	Family string     `json:"-"`
	Period string     `json:"periodo"`
	State  FloodState `json:"estado"`
	Value  *float64   `json:"valor,omitempty"`
}

// FireLevel buckets the fire-frequency value.
type FireLevel string

const (
	FireNone    FireLevel = "none"
	FireLow     FireLevel = "low"
	FireMedium  FireLevel = "medium"
	FireHigh    FireLevel = "high"
	FireUnknown FireLevel = "unknown"
)

// FireSignal is the normalized wildfire classification.
type FireSignal struct {
	Level     FireLevel `json:"nivel"`
	Present   bool      `json:"presente"`
	Frequency *float64  `json:"frecuencia,omitempty"`
}

// SeismicLevel buckets the ground-acceleration value.
type SeismicLevel string

const (
	SeismicNone   SeismicLevel = "none"
	SeismicLow    SeismicLevel = "low"
	SeismicMedium SeismicLevel = "medium"
	SeismicHigh   SeismicLevel = "high"
)

// SeismicSignal is the normalized seismic classification.
type SeismicSignal struct {
	Level        SeismicLevel `json:"nivel"`
	Present      bool         `json:"presente"`
	Acceleration *float64     `json:"aceleracion,omitempty"`
}

// CoastalSignal is the binary DPMT membership signal.
type CoastalSignal struct {
	Inside bool `json:"dentro_dpmt"`
}

// ErosionLevel buckets the erosion raster value. Levels are Spanish because
// they appear verbatim in the response.
type ErosionLevel string

const (
	ErosionNoData ErosionLevel = "no_data"
	ErosionLow    ErosionLevel = "bajo"
	ErosionMedium ErosionLevel = "medio"
	ErosionHigh   ErosionLevel = "alto"
)

// ErosionSignal is the normalized (informational) erosion classification.
type ErosionSignal struct {
	Level ErosionLevel `json:"nivel"`
	Value *float64     `json:"valor,omitempty"`
}

// SignalSet collects every normalized per-hazard signal for one request.
type SignalSet struct {
	Flood            []FloodSignal
	Coastal          CoastalSignal
	Fire             FireSignal
	Seismic          SeismicSignal
	ErosionPotential ErosionSignal
	ErosionLaminar   ErosionSignal
}

// Normalize reduces the fan-out results into a SignalSet, driven by the
// profile's source catalog. Total: unknown slots and failed results degrade
// to the family's lowest signal.
func Normalize(p Profile, results map[string]RawResult) SignalSet {
	var set SignalSet
	set.Fire.Level = FireNone
	set.Seismic.Level = SeismicNone
	set.ErosionPotential.Level = ErosionNoData
	set.ErosionLaminar.Level = ErosionNoData

	for _, src := range p.Sources {
		result := results[src.Slot()]
		switch src.Family {
		case FamilyFluvialFlood, FamilyMarineFlood:
			set.Flood = append(set.Flood, NormalizeFlood(p.Flood, src.Family, src.Period, result))
		case FamilyCoastal:
			set.Coastal = NormalizeCoastal(result)
		case FamilyFire:
			set.Fire = NormalizeFire(p.Fire, result)
		case FamilySeismic:
			set.Seismic = NormalizeSeismic(p.Seismic, result)
		case FamilyErosionPot:
			set.ErosionPotential = NormalizeErosion(p.Erosion, result)
		case FamilyErosionLaminar:
			set.ErosionLaminar = NormalizeErosion(p.Erosion, result)
		}
	}
	return set
}

// NormalizeFlood classifies one return period from its raster sample.
// The sentinel (and any value at or below it) means the point is outside the
// mapped area; zero means mapped but dry for this period.
func NormalizeFlood(rules FloodRules, family, period string, r RawResult) FloodSignal {
	signal := FloodSignal{Family: family, Period: period, State: FloodNoData}

	props := r.FirstProperties()
	if props == nil {
		return signal
	}

	value, ok := numericProperty(props, rules.FieldAliases)
	if !ok {
		// Field absent on a real feature: historical behavior reads it as zero.
		value = 0
	}

	switch {
	case value <= rules.NoDataMax:
		signal.State = FloodNoData
	case value == 0:
		signal.State = FloodNotFlooded
	default:
		signal.State = FloodFlooded
		signal.Value = &value
	}
	return signal
}

// NormalizeCoastal reports DPMT membership: at least one feature means the
// point falls inside the protected coastal zone.
func NormalizeCoastal(r RawResult) CoastalSignal {
	return CoastalSignal{Inside: r.Features() != nil}
}

// NormalizeFire buckets the fire-frequency value found under the first
// present alias. A feature without a readable value is still a presence hit
// but classifies as unknown.
func NormalizeFire(rules FireRules, r RawResult) FireSignal {
	if r.Features() == nil {
		return FireSignal{Level: FireNone}
	}

	signal := FireSignal{Present: true, Level: FireUnknown}
	value, ok := numericProperty(r.FirstProperties(), rules.FieldAliases)
	if !ok {
		return signal
	}

	signal.Frequency = &value
	switch {
	case value == 0:
		signal.Level = FireNone
	case value < rules.LowMax:
		signal.Level = FireLow
	case value < rules.MediumMax:
		signal.Level = FireMedium
	default:
		signal.Level = FireHigh
	}
	return signal
}

// NormalizeSeismic buckets the ground acceleration found under the first
// present alias. No feature or no readable value means no seismic risk zone.
func NormalizeSeismic(rules SeismicRules, r RawResult) SeismicSignal {
	if r.Features() == nil {
		return SeismicSignal{Level: SeismicNone}
	}

	signal := SeismicSignal{Present: true}
	value, ok := numericProperty(r.FirstProperties(), rules.FieldAliases)
	if !ok {
		signal.Level = SeismicNone
		return signal
	}

	signal.Acceleration = &value
	switch {
	case value < rules.LowMax:
		signal.Level = SeismicLow
	case value < rules.MediumMax:
		signal.Level = SeismicMedium
	default:
		signal.Level = SeismicHigh
	}
	return signal
}

// numberTokenRe matches the first numeric token in a text/plain raster reply,
// e.g. "GRAY_INDEX = 75.5" or "value=0".
var numberTokenRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// NormalizeErosion buckets the first numeric token of a plain-text raster
// response. Values at or below zero (and unreadable bodies) mean no data.
func NormalizeErosion(rules ErosionRules, r RawResult) ErosionSignal {
	token := numberTokenRe.FindString(r.Raw)
	if token == "" {
		return ErosionSignal{Level: ErosionNoData}
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value <= 0 {
		return ErosionSignal{Level: ErosionNoData}
	}

	signal := ErosionSignal{Value: &value}
	switch {
	case value < rules.LowMax:
		signal.Level = ErosionLow
	case value < rules.MediumMax:
		signal.Level = ErosionMedium
	default:
		signal.Level = ErosionHigh
	}
	return signal
}

// numericProperty looks a number up through the ordered alias list; the first
// present alias wins even if a later one would also match. Accepts JSON
// numbers and numeric strings (the older MITECO layers quote their values).
func numericProperty(props map[string]any, aliases []string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	for _, alias := range aliases {
		raw, ok := props[alias]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err == nil {
				return parsed, true
			}
		}
		return 0, false
	}
	return 0, false
}
