package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wayfarer/internal/api"
	"wayfarer/internal/cache"
	"wayfarer/internal/config"
	"wayfarer/internal/engine"
	"wayfarer/internal/env"
	"wayfarer/internal/eventfeed"
	"wayfarer/internal/logging"
	"wayfarer/internal/models"
	"wayfarer/internal/normalize"
	"wayfarer/internal/places"
	"wayfarer/pkg/graceful"
)

func main() {
	boot := logging.New("info", false)
	if err := env.Load(); err != nil {
		boot.Fatal().Err(err).Msg("loading .env")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("loading configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogConsole)
	logger.Info().Interface("config", cfg.Redacted()).Msg("starting")

	ctx, cancel := graceful.Context(context.Background(), logger)
	defer cancel()

	client := places.NewClient(cfg.PlacesAPIKey, places.Options{
		BaseURL:           cfg.PlacesBaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.UpstreamRPS,
		BreakerFailures:   uint32(cfg.BreakerFailures),
	})

	var feed eventfeed.Publisher = eventfeed.Noop{}
	if cfg.EventFeedEnabled() {
		kafkaFeed := eventfeed.NewKafka(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		defer func() {
			if err := kafkaFeed.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing event feed")
			}
		}()
		feed = kafkaFeed
	}

	orch := engine.New(
		client,
		cache.New[[]models.Landmark](cfg.CacheTTL),
		normalize.New(client.PhotoURL),
		feed,
		logger,
		engine.Config{
			RadiusMeters:  cfg.SearchRadiusMeters,
			TopK:          cfg.TopK,
			RegionRetries: cfg.RegionRetries,
		},
	)

	srv := api.NewServer(orch, client, cfg.CacheTTL, cfg.APIRateLimit, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
			os.Exit(1)
		}
		logger.Info().Msg("stopped")
	}
}
