package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"pomoroom/internal/cleanup"
	"pomoroom/internal/config"
	"pomoroom/internal/logger"
	"pomoroom/internal/plan"
	"pomoroom/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "once", "Sweeper mode: once|loop")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	catalog, err := plan.ParseCatalogJSON(cfg.PlanCatalogJSON)
	if err != nil {
		logger.Fatal().Msgf("Invalid plan catalog: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	sweeper, closeSweeper, err := cleanup.NewFromConfig(ctx, cfg, pool, catalog, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build retention sweeper: %v", err)
	}
	defer closeSweeper()

	switch *mode {
	case "once":
		runCtx := ctx
		if cfg.SweepTimeout > 0 {
			var stop context.CancelFunc
			runCtx, stop = context.WithTimeout(ctx, cfg.SweepTimeout)
			defer stop()
		}
		sum, err := sweeper.Run(runCtx, time.Now())
		if err != nil {
			logger.Error().Err(err).Msg("Retention sweep failed")
			return
		}
		logger.Info().Int("deleted_count", sum.DeletedCount).Msg("Retention sweep complete")
	case "loop":
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		if err := cleanup.Run(ctx, logger, sweeper, interval, cfg.SweepTimeout); err != nil {
			logger.Error().Err(err).Msg("Retention sweeper stopped")
			return
		}
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	logger.Info().Msgf("%s sweeper stopped gracefully", *mode)
}
