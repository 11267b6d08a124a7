package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pomoroom/internal/api/v1/router"
	"pomoroom/internal/cleanup"
	"pomoroom/internal/config"
	"pomoroom/internal/logger"
	"pomoroom/internal/plan"
	"pomoroom/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// @title Pomoroom API
// @version 1.0
// @description Shared pomodoro rooms with plan limits
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	logger := logger.New()

	// 1. Load configuration
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Open the database pool
	pool, err := repository.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// 3. Build the sweeper and router
	sweeper, closeSweeper, err := cleanup.NewFromConfig(ctx, cfg, pool, catalog, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build retention sweeper: %v", err)
	}
	defer closeSweeper()

	r, err := router.New(ctx, cfg, pool, catalog, sweeper, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.SweepTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Serve until a shutdown signal, sweeping in-process when configured
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutdown signal received, exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.SweepInterval > 0 {
		g.Go(func() error {
			return cleanup.Run(gctx, logger, sweeper, cfg.SweepInterval, cfg.SweepTimeout)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Msgf("Server stopped with error: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
