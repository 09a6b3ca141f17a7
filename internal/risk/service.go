// Package risk orchestrates a risk assessment: fan out to the hazard
// sources, normalize, score, and assemble the geometry-stripped response.
package risk

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/observability"
)

// Fetcher samples every hazard source around a bounding box. Implementations
// must always return one result per source; failures are values.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []domain.HazardSource, bbox domain.BoundingBox) map[string]domain.RawResult
}

// EventPublisher emits one event per completed assessment.
type EventPublisher interface {
	Publish(ctx context.Context, event AssessmentEvent) error
}

// AssessmentEvent is the record published for downstream analytics.
type AssessmentEvent struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Score      float64   `json:"composite_score"`
	Level      int       `json:"final_risk_level"`
	AssessedAt time.Time `json:"assessed_at"`
}

// Assessment is the full risk response for one coordinate.
type Assessment struct {
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	RiskAnalysis RiskAnalysis   `json:"risk_analysis"`
	SinGeometria map[string]any `json:"sin_geometria"`
}

// RiskAnalysis carries the classification plus the normalized signals it was
// derived from.
type RiskAnalysis struct {
	FinalRiskLevel int     `json:"final_risk_level"`
	CompositeScore float64 `json:"composite_score"`
	Note           string  `json:"note"`
	Signals        Signals `json:"senales"`
}

// Signals summarizes every normalized per-hazard signal.
type Signals struct {
	Flood            []domain.FloodSignal `json:"inundacion"`
	Coastal          domain.CoastalSignal `json:"dpmt"`
	Fire             domain.FireSignal    `json:"incendios"`
	Seismic          domain.SeismicSignal `json:"sismico"`
	ErosionPotential domain.ErosionSignal `json:"desertificacion_potencial"`
	ErosionLaminar   domain.ErosionSignal `json:"desertificacion_laminar"`
}

// Service runs assessments against a fixed profile.
type Service struct {
	profile   domain.Profile
	fetcher   Fetcher
	publisher EventPublisher // nil when event publishing is disabled
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an assessment service. publisher may be nil.
func New(profile domain.Profile, fetcher Fetcher, publisher EventPublisher,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		profile:   profile,
		fetcher:   fetcher,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the service can answer. The service is
// stateless, so a validated profile means ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	return s.profile.Validate()
}

// Assess runs the full cycle for one coordinate. It always produces an
// assessment: source failures degrade their signals instead of aborting
// (fail-open, biased toward lower observed risk).
func (s *Service) Assess(ctx context.Context, coord domain.Coordinate) *Assessment {
	start := s.clock.Now()

	bbox := domain.PointBoundingBox(coord, s.profile.MarginDegrees)
	results := s.fetcher.FetchAll(ctx, s.profile.Sources, bbox)

	signals := domain.Normalize(s.profile, results)
	score := domain.Score(s.profile, signals)

	assessment := &Assessment{
		Lat: coord.Lat,
		Lon: coord.Lon,
		RiskAnalysis: RiskAnalysis{
			FinalRiskLevel: score.Level,
			CompositeScore: score.Score,
			Note:           s.profile.Note(),
			Signals: Signals{
				Flood:            signals.Flood,
				Coastal:          signals.Coastal,
				Fire:             signals.Fire,
				Seismic:          signals.Seismic,
				ErosionPotential: signals.ErosionPotential,
				ErosionLaminar:   signals.ErosionLaminar,
			},
		},
		SinGeometria: s.stripResults(results, signals),
	}

	s.metrics.Assessments.WithLabelValues(strconv.Itoa(score.Level)).Inc()
	s.metrics.AssessmentDuration.Observe(s.clock.Since(start).Seconds())
	s.logger.Info("assessment complete",
		"lat", coord.Lat, "lon", coord.Lon,
		"score", score.Score, "level", score.Level)

	s.publish(AssessmentEvent{
		Lat:        coord.Lat,
		Lon:        coord.Lon,
		Score:      score.Score,
		Level:      score.Level,
		AssessedAt: s.clock.Now().UTC(),
	})

	return assessment
}

// stripResults builds the sin_geometria object: one key per hazard family.
// JSON families carry the geometry-stripped raw payload (or its raw/error
// wrapper); flood families nest per return period; the erosion rasters carry
// their normalized summary instead of the raw text.
func (s *Service) stripResults(results map[string]domain.RawResult, signals domain.SignalSet) map[string]any {
	out := make(map[string]any)

	for _, src := range s.profile.Sources {
		result := results[src.Slot()]
		switch src.Family {
		case domain.FamilyFluvialFlood, domain.FamilyMarineFlood:
			group, _ := out[src.Family].(map[string]any)
			if group == nil {
				group = make(map[string]any)
				out[src.Family] = group
			}
			group[src.Period] = strippedPayload(result)
		case domain.FamilyErosionPot:
			out[src.Family] = signals.ErosionPotential
		case domain.FamilyErosionLaminar:
			out[src.Family] = signals.ErosionLaminar
		default:
			out[src.Family] = strippedPayload(result)
		}
	}
	return out
}

func strippedPayload(r domain.RawResult) any {
	switch {
	case r.Failed():
		return map[string]any{"error": r.Err}
	case r.Value != nil:
		return domain.StripGeometry(r.Value)
	default:
		return map[string]any{"raw": r.Raw}
	}
}

// publish emits the assessment event off the request path. Publish failures
// are logged and counted, never surfaced to the caller.
func (s *Service) publish(event AssessmentEvent) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, event); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Warn("assessment event publish failed", "error", err)
			return
		}
		s.metrics.EventsPublished.Inc()
	}()
}
