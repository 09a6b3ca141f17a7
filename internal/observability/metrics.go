package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the risk backend.
type Metrics struct {
	// Hazard source fan-out.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={json,raw_text,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source

	// Risk assessments.
	Assessments        *prometheus.CounterVec // labels: level={1,2,3}
	AssessmentDuration prometheus.Histogram

	// INE statistics lookups.
	INERequests *prometheus.CounterVec // labels: outcome={success,error}
	INECache    *prometheus.CounterVec // labels: result={hit,miss}

	// Conversion collaborator proxies.
	ConvertRequests *prometheus.CounterVec // labels: kind={pdf2img,html2pdf}, outcome={success,error}

	// Assessment event publishing.
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.Assessments,
		m.AssessmentDuration,
		m.INERequests,
		m.INECache,
		m.ConvertRequests,
		m.EventsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "source_fetches_total",
			Help:      "Hazard source fetches by source slot and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "risk_api",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of one hazard source fetch including fallbacks.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 25},
		}, []string{"source"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "assessments_total",
			Help:      "Completed risk assessments by final level.",
		}, []string{"level"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_api",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a complete fan-out, normalize, and score cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 25},
		}),
		INERequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "ine_requests_total",
			Help:      "INE municipal data lookups by outcome.",
		}, []string{"outcome"}),
		INECache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "ine_cache_total",
			Help:      "INE cache lookups by result.",
		}, []string{"result"}),
		ConvertRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "convert_requests_total",
			Help:      "Conversion collaborator calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "events_published_total",
			Help:      "Assessment events published to the event topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_api",
			Name:      "publish_errors_total",
			Help:      "Assessment event publish failures.",
		}),
	}
}
