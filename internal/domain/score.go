package domain

// CompositeRiskScore is the weighted score in [0, 10] and its 3-level
// classification (1 low, 2 medium, 3 high).
type CompositeRiskScore struct {
	Score float64 `json:"composite_score"`
	Level int     `json:"final_risk_level"`
}

// Score combines the normalized signals into the composite classification.
// Pure and deterministic; erosion is informational and never scores.
func Score(p Profile, s SignalSet) CompositeRiskScore {
	composite := 0.0

	// Flood: worst flooded return period wins.
	maxFlood := 0.0
	for _, flood := range s.Flood {
		if flood.State != FloodFlooded {
			continue
		}
		if points := p.Flood.PeriodScores[flood.Period]; points > maxFlood {
			maxFlood = points
		}
	}
	composite += maxFlood * p.Weights.Flood

	if s.Coastal.Inside {
		composite += p.Coastal.PresencePoints * p.Weights.Coastal
	}
	if s.Fire.Present {
		composite += p.Fire.PresencePoints * p.Weights.Fire
	}
	if s.Seismic.Present {
		composite += p.Seismic.PresencePoints * p.Weights.Seismic
	}

	return CompositeRiskScore{
		Score: composite,
		Level: p.Levels.Classify(composite),
	}
}

// Classify maps a composite score to the ordinal level. Ties at a band
// boundary fall into the lower band.
func (b LevelBands) Classify(score float64) int {
	switch {
	case score <= b.LowMax:
		return 1
	case score <= b.MediumMax:
		return 2
	default:
		return 3
	}
}
