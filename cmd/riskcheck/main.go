// Command riskcheck validates a risk profile and shows the query plan for a
// coordinate without running the server. With -live it executes the full
// fan-out against the real map services and prints the assessment.
//
// Usage:
//
//	go run ./cmd/riskcheck -lat 40.4168 -lon -3.7038
//	go run ./cmd/riskcheck -profile profiles/custom.yaml -lat 40.4168 -lon -3.7038 -live
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/cuantia/risk-service/internal/adapter/wms"
	"github.com/cuantia/risk-service/internal/domain"
	"github.com/cuantia/risk-service/internal/observability"
	"github.com/cuantia/risk-service/internal/risk"
)

func main() {
	profilePath := flag.String("profile", "", "YAML risk profile; embedded default when empty")
	lat := flag.Float64("lat", 40.416775, "latitude of the point to plan or assess")
	lon := flag.Float64("lon", -3.703790, "longitude of the point to plan or assess")
	live := flag.Bool("live", false, "execute the fan-out against the real map services")
	timeout := flag.Duration("timeout", 15*time.Second, "per-source fetch timeout in live mode")
	flag.Parse()

	if err := run(*profilePath, *lat, *lon, *live, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "riskcheck:", err)
		os.Exit(1)
	}
}

func run(profilePath string, lat, lon float64, live bool, timeout time.Duration) error {
	profile, err := loadProfile(profilePath)
	if err != nil {
		return err
	}
	fmt.Printf("profile %q valid: %d sources, margin %g°\n",
		profile.Version, len(profile.Sources), profile.MarginDegrees)

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	bbox := domain.PointBoundingBox(coord, profile.MarginDegrees)
	fmt.Printf("point (%g, %g) bbox %s\n\n", lat, lon, bbox)

	if !live {
		for _, source := range profile.Sources {
			fmt.Printf("%s:\n", source.Slot())
			for _, u := range source.FeatureInfoURLs(bbox) {
				fmt.Printf("  %s\n", u)
			}
		}
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	fetcher := wms.NewClient(timeout, logger, metrics)
	service := risk.New(profile, fetcher, nil, clockwork.NewRealClock(), logger, metrics)

	assessment := service.Assess(context.Background(), coord)

	out, err := json.MarshalIndent(assessment, "", "  ")
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func loadProfile(path string) (domain.Profile, error) {
	if path == "" {
		return domain.DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var profile domain.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return domain.Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return profile, nil
}
