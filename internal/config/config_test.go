package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuantia/risk-service/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Empty(t, cfg.RiskProfilePath)
	assert.Equal(t, "https://servicios.ine.es/wstempus/jsCache/ES", cfg.INEBaseURL)
	assert.Equal(t, time.Hour, cfg.INECacheTTL)
	assert.Equal(t, 30*time.Second, cfg.ConvertTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FETCH_TIMEOUT", "25s")
	t.Setenv("INE_BASE_URL", "http://localhost:9999/wstempus/ES")
	t.Setenv("INE_CACHE_TTL", "2h")
	t.Setenv("PDF_RENDER_URL", "http://render.internal/convert")
	t.Setenv("HTML_PDF_URL", "http://render.internal/html")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "assessments")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 25*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "http://localhost:9999/wstempus/ES", cfg.INEBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.INECacheTTL)
	assert.Equal(t, "http://render.internal/convert", cfg.PDFRenderURL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "assessments", cfg.KafkaTopic)
	assert.True(t, cfg.EventsEnabled())
}

func TestLoad_InvalidDurations(t *testing.T) {
	tests := []struct{ key, value string }{
		{"SHUTDOWN_TIMEOUT", "soon"},
		{"FETCH_TIMEOUT", "15"},
		{"INE_CACHE_TTL", "never"},
		{"CONVERT_TIMEOUT", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_NegativeFetchTimeout(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "-5s")
	_, err := Load()
	assert.ErrorContains(t, err, "FETCH_TIMEOUT")
}

func TestLoadProfile_Default(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	profile, err := cfg.LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfile(), profile)
}

func TestLoadProfile_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `
version: 2
margin_degrees: 0.0001
weights: {flood: 0.5, coastal: 0.2, fire: 0.2, seismic: 0.1}
flood:
  field_aliases: [GRAY_INDEX]
  no_data_max: -1000
  period_scores: {T10: 10}
coastal: {presence_points: 10}
fire: {field_aliases: [FRECUENCIA], presence_points: 8, low_max: 5, medium_max: 20}
seismic: {field_aliases: [PGA], presence_points: 5, low_max: 0.04, medium_max: 0.08}
erosion: {low_max: 50, medium_max: 100}
levels: {low_max: 3.0, medium_max: 6.0}
sources:
  - family: sismico
    base_url: https://wms.example/geofisica
    layer: HazardArea2002.NCSE-02
    crs: CRS:84
    info_format: application/json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("RISK_PROFILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	profile, err := cfg.LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Version)
	assert.Equal(t, 0.0001, profile.MarginDegrees)
	assert.Equal(t, 0.5, profile.Weights.Flood)
	require.Len(t, profile.Sources, 1)
	assert.Equal(t, "sismico", profile.Sources[0].Family)
}

func TestLoadProfile_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("margin_degrees: -1"), 0o600))
	t.Setenv("RISK_PROFILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.LoadProfile()
	assert.ErrorContains(t, err, "margin_degrees")
}

func TestLoadProfile_MissingFile(t *testing.T) {
	t.Setenv("RISK_PROFILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.LoadProfile()
	assert.ErrorContains(t, err, "read risk profile")
}
