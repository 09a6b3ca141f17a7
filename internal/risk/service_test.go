package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/observability"
)

// stubFetcher returns canned results and records the request it saw.
type stubFetcher struct {
	results map[string]domain.RawResult
	sources []domain.HazardSource
	bbox    domain.BoundingBox
}

func (f *stubFetcher) FetchAll(_ context.Context, sources []domain.HazardSource, bbox domain.BoundingBox) map[string]domain.RawResult {
	f.sources = sources
	f.bbox = bbox
	out := make(map[string]domain.RawResult, len(sources))
	for _, src := range sources {
		if r, ok := f.results[src.Slot()]; ok {
			out[src.Slot()] = r
		} else {
			out[src.Slot()] = domain.RawResult{Err: "not stubbed"}
		}
	}
	return out
}

type capturingPublisher struct {
	events chan AssessmentEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event AssessmentEvent) error {
	p.events <- event
	return p.err
}

func newService(fetcher Fetcher, publisher EventPublisher) *Service {
	return New(domain.DefaultProfile(), fetcher, publisher,
		clockwork.NewFakeClock(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func featureCollection(props map[string]any) domain.RawResult {
	return domain.RawResult{Value: map[string]any{
		"type": "FeatureCollection",
		"features": []any{map[string]any{
			"type":       "Feature",
			"properties": props,
			"geometry":   map[string]any{"type": "Polygon"},
		}},
	}}
}

func TestAssess_AllSourcesFailed(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 40.4, Lon: -3.7})

	require.NotNil(t, assessment)
	assert.Equal(t, 1, assessment.RiskAnalysis.FinalRiskLevel)
	assert.Equal(t, 0.0, assessment.RiskAnalysis.CompositeScore)
	assert.False(t, assessment.RiskAnalysis.Signals.Coastal.Inside)
	assert.Equal(t, domain.FireNone, assessment.RiskAnalysis.Signals.Fire.Level)

	// The response is still complete: every family key is present.
	for _, family := range []string{
		domain.FamilyCoastal, domain.FamilyFire, domain.FamilyFluvialFlood,
		domain.FamilyMarineFlood, domain.FamilySeismic,
		domain.FamilyErosionPot, domain.FamilyErosionLaminar,
	} {
		assert.Contains(t, assessment.SinGeometria, family)
	}

	dpmt, ok := assessment.SinGeometria[domain.FamilyCoastal].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not stubbed", dpmt["error"])
}

func TestAssess_CoastalOnlyIsExactBoundary(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]domain.RawResult{
		domain.FamilyCoastal: featureCollection(map[string]any{"ZONA": "dpmt"}),
	}}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 36.5, Lon: -4.6})

	// 10 x 0.30 = 3.0 sits exactly on the band boundary and rounds down.
	assert.Equal(t, 3.0, assessment.RiskAnalysis.CompositeScore)
	assert.Equal(t, 1, assessment.RiskAnalysis.FinalRiskLevel)
	assert.True(t, assessment.RiskAnalysis.Signals.Coastal.Inside)
}

func TestAssess_FloodT10IsMedium(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]domain.RawResult{
		"inundacion_fluvial/T10": featureCollection(map[string]any{"GRAY_INDEX": 1.5}),
	}}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 40.4, Lon: -3.7})

	assert.Equal(t, 4.0, assessment.RiskAnalysis.CompositeScore)
	assert.Equal(t, 2, assessment.RiskAnalysis.FinalRiskLevel)
}

func TestAssess_BoundingBoxUsesProfileMargin(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newService(fetcher, nil)

	coord := domain.Coordinate{Lat: 40.4, Lon: -3.7}
	svc.Assess(context.Background(), coord)

	expected := domain.PointBoundingBox(coord, domain.DefaultProfile().MarginDegrees)
	assert.Equal(t, expected, fetcher.bbox)
	assert.Len(t, fetcher.sources, len(domain.DefaultProfile().Sources))
}

func TestAssess_StripsGeometry(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]domain.RawResult{
		domain.FamilySeismic: featureCollection(map[string]any{"PGA": 0.05}),
	}}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 37.2, Lon: -1.9})

	seismic, ok := assessment.SinGeometria[domain.FamilySeismic].(map[string]any)
	require.True(t, ok)
	features := seismic["features"].([]any)
	require.Len(t, features, 1)
	feature := features[0].(map[string]any)
	assert.NotContains(t, feature, "geometry")
	assert.Equal(t, map[string]any{"PGA": 0.05}, feature["properties"])
}

func TestAssess_ErosionCarriesNormalizedSummary(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]domain.RawResult{
		domain.FamilyErosionPot:     {Raw: "value=75.5"},
		domain.FamilyErosionLaminar: {Raw: "value=0"},
	}}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 37.2, Lon: -1.9})

	potential, ok := assessment.SinGeometria[domain.FamilyErosionPot].(domain.ErosionSignal)
	require.True(t, ok)
	assert.Equal(t, domain.ErosionMedium, potential.Level)
	require.NotNil(t, potential.Value)
	assert.Equal(t, 75.5, *potential.Value)

	laminar, ok := assessment.SinGeometria[domain.FamilyErosionLaminar].(domain.ErosionSignal)
	require.True(t, ok)
	assert.Equal(t, domain.ErosionNoData, laminar.Level)
	assert.Nil(t, laminar.Value)
}

func TestAssess_FloodFamiliesNestPeriods(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newService(fetcher, nil)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 40.4, Lon: -3.7})

	fluvial, ok := assessment.SinGeometria[domain.FamilyFluvialFlood].(map[string]any)
	require.True(t, ok)
	assert.Len(t, fluvial, 3)
	assert.Contains(t, fluvial, "T10")
	assert.Contains(t, fluvial, "T100")
	assert.Contains(t, fluvial, "T500")

	marina, ok := assessment.SinGeometria[domain.FamilyMarineFlood].(map[string]any)
	require.True(t, ok)
	assert.Len(t, marina, 2)
}

func TestAssess_PublishesEvent(t *testing.T) {
	fetcher := &stubFetcher{results: map[string]domain.RawResult{
		domain.FamilyCoastal: featureCollection(map[string]any{}),
	}}
	publisher := &capturingPublisher{events: make(chan AssessmentEvent, 1)}
	svc := newService(fetcher, publisher)

	svc.Assess(context.Background(), domain.Coordinate{Lat: 36.5, Lon: -4.6})

	select {
	case event := <-publisher.events:
		assert.Equal(t, 36.5, event.Lat)
		assert.Equal(t, -4.6, event.Lon)
		assert.Equal(t, 3.0, event.Score)
		assert.Equal(t, 1, event.Level)
		assert.False(t, event.AssessedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestAssess_PublishFailureDoesNotAffectResponse(t *testing.T) {
	fetcher := &stubFetcher{}
	publisher := &capturingPublisher{
		events: make(chan AssessmentEvent, 1),
		err:    errors.New("broker down"),
	}
	svc := newService(fetcher, publisher)

	assessment := svc.Assess(context.Background(), domain.Coordinate{Lat: 40.0, Lon: -3.0})

	require.NotNil(t, assessment)
	assert.Equal(t, 1, assessment.RiskAnalysis.FinalRiskLevel)
	<-publisher.events
}

func TestCheckReadiness(t *testing.T) {
	svc := newService(&stubFetcher{}, nil)
	assert.NoError(t, svc.CheckReadiness(context.Background()))
}
