package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuantia/risk-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Per-source timeout for hazard map fetches.
	FetchTimeout time.Duration
	// Optional path to a YAML risk profile overriding the embedded default.
	RiskProfilePath string

	// INE statistics collaborator.
	INEBaseURL  string
	INECacheTTL time.Duration

	// Conversion collaborators; endpoints answer 503 when unset.
	PDFRenderURL   string
	HTMLPDFURL     string
	ConvertTimeout time.Duration

	// Assessment event publishing; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
}

// EventsEnabled reports whether assessment events should be published.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	ineTTL, err := envDuration("INE_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	convertTimeout, err := envDuration("CONVERT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		FetchTimeout:    fetchTimeout,
		RiskProfilePath: os.Getenv("RISK_PROFILE"),
		INEBaseURL:      envOrDefault("INE_BASE_URL", "https://servicios.ine.es/wstempus/jsCache/ES"),
		INECacheTTL:     ineTTL,
		PDFRenderURL:    os.Getenv("PDF_RENDER_URL"),
		HTMLPDFURL:      os.Getenv("HTML_PDF_URL"),
		ConvertTimeout:  convertTimeout,
		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "risk-assessments"),
	}

	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.INECacheTTL <= 0 {
		return nil, errors.New("INE_CACHE_TTL must be positive")
	}
	if cfg.EventsEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// LoadProfile returns the risk profile: the YAML file at RiskProfilePath when
// set, the embedded default otherwise.
func (c *Config) LoadProfile() (domain.Profile, error) {
	if c.RiskProfilePath == "" {
		return domain.DefaultProfile(), nil
	}

	data, err := os.ReadFile(c.RiskProfilePath)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read risk profile: %w", err)
	}

	var profile domain.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return domain.Profile{}, fmt.Errorf("parse risk profile %s: %w", c.RiskProfilePath, err)
	}
	if err := profile.Validate(); err != nil {
		return domain.Profile{}, fmt.Errorf("risk profile %s: %w", c.RiskProfilePath, err)
	}
	return profile, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
