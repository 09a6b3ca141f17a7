package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/cuantia/risk-service/internal/adapter/convert"
	"github.com/cuantia/risk-service/internal/adapter/httpapi"
	"github.com/cuantia/risk-service/internal/adapter/ine"
	kafkaadapter "github.com/cuantia/risk-service/internal/adapter/kafka"
	"github.com/cuantia/risk-service/internal/adapter/wms"
	"github.com/cuantia/risk-service/internal/config"
	"github.com/cuantia/risk-service/internal/observability"
	"github.com/cuantia/risk-service/internal/risk"
)

func main() {
	// Local development convenience; absent .env files are fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	profile, err := cfg.LoadProfile()
	if err != nil {
		logger.Error("failed to load risk profile", "error", err)
		os.Exit(1)
	}
	logger.Info("risk profile loaded", "version", profile.Version, "sources", len(profile.Sources))

	clock := clockwork.NewRealClock()

	fetcher := wms.NewClient(cfg.FetchTimeout, logger, metrics)

	var statistics ine.DataSource = ine.NewClient(cfg.INEBaseURL, cfg.FetchTimeout, logger, metrics)
	statistics = ine.NewCachedSource(statistics, cfg.INECacheTTL, clock, metrics)

	// Conversion collaborators are optional; their endpoints answer 503
	// when not configured.
	var converter convert.Converter
	if cfg.PDFRenderURL != "" || cfg.HTMLPDFURL != "" {
		converter = convert.NewClient(cfg.PDFRenderURL, cfg.HTMLPDFURL, cfg.ConvertTimeout, logger, metrics)
		logger.Info("conversion collaborators configured")
	} else {
		logger.Info("conversion collaborators disabled")
	}

	// Assessment event publishing is optional too.
	var publisher risk.EventPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.EventsEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaPublisher
		logger.Info("assessment events enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("assessment events disabled")
	}

	assessor := risk.New(profile, fetcher, publisher, clock, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, assessor, statistics, converter, assessor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
