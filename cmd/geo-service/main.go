package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/ride-geo-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ride-geo-service/internal/adapter/kafka"
	"github.com/couchcryptid/ride-geo-service/internal/adapter/mapbox"
	"github.com/couchcryptid/ride-geo-service/internal/adapter/opencage"
	"github.com/couchcryptid/ride-geo-service/internal/config"
	"github.com/couchcryptid/ride-geo-service/internal/domain"
	"github.com/couchcryptid/ride-geo-service/internal/fare"
	"github.com/couchcryptid/ride-geo-service/internal/gazetteer"
	"github.com/couchcryptid/ride-geo-service/internal/geocache"
	"github.com/couchcryptid/ride-geo-service/internal/geofence"
	"github.com/couchcryptid/ride-geo-service/internal/grading"
	"github.com/couchcryptid/ride-geo-service/internal/observability"
	"github.com/couchcryptid/ride-geo-service/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Provider proximity bias: the centroid of the configured bounds.
	center := domain.Coordinate{
		Lat: (cfg.Bounds.MinLat + cfg.Bounds.MaxLat) / 2,
		Lon: (cfg.Bounds.MinLon + cfg.Bounds.MaxLon) / 2,
	}

	primary := opencage.NewClient(cfg.OpenCageKey, cfg.OpenCageTimeout, center, metrics, logger)
	secondary := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, center, metrics, logger)
	metrics.ProviderUp.Set(2)
	cache := geocache.New(cfg.CacheSize, cfg.CacheTTL)

	r := resolver.New(
		gazetteer.Default(),
		primary,
		secondary,
		primary,
		cache,
		resolver.Config{
			Bounds:           cfg.Bounds,
			HighConfidence:   cfg.HighConfidence,
			DegradationRatio: cfg.DegradationRatio,
		},
		metrics,
		logger,
	)

	gate := geofence.New(cfg.Bounds, cfg.Municipalities, cfg.ServiceZones, r.ReverseComponents, logger)
	grader := grading.NewGrader(cfg.Municipalities)

	schedule := fare.Schedule{
		BasePrice:  float64(cfg.FareBase),
		Threshold1: cfg.FareThreshold1,
		Threshold2: cfg.FareThreshold2,
		Threshold3: cfg.FareThreshold3,
		Rate2:      cfg.FareRate2,
		Rate3:      cfg.FareRate3,
		Rate4:      cfg.FareRate4,
	}
	if err := schedule.Validate(); err != nil {
		logger.Error("invalid fare schedule", "error", err)
		os.Exit(1)
	}

	// Dispatch event stream (feature-flagged via KAFKA_ENABLED).
	var events resolver.EventPublisher
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		events = publisher
		logger.Info("dispatch event stream enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("dispatch event stream disabled")
	}

	pipeline := resolver.NewPipeline(r, grader, gate, schedule, events, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, pipeline, pipeline, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
