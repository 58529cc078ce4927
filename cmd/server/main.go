// Quantfolio is a portfolio optimization service.
//
// It composes the application in dependency order:
//  1. Load configuration from environment variables
//  2. Initialize the logger
//  3. Open the cache database
//  4. Wire market data providers, solvers and the advisor service
//  5. Start the cache prune scheduler and the HTTP server
//  6. Wait for a shutdown signal and stop gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aristath/quantfolio/internal/config"
	"github.com/aristath/quantfolio/internal/database"
	"github.com/aristath/quantfolio/internal/modules/advisor"
	advisorhandlers "github.com/aristath/quantfolio/internal/modules/advisor/handlers"
	"github.com/aristath/quantfolio/internal/modules/backtest"
	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/optimization"
	"github.com/aristath/quantfolio/internal/modules/quantum"
	"github.com/aristath/quantfolio/internal/server"
	"github.com/aristath/quantfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Quantfolio")

	cacheDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "cache.db"),
		Name: "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Market data: remote CSV provider behind a sqlite cache, plus the
	// synthetic generator for requests without real data.
	stooq := marketdata.NewStooqClient(cfg.MarketDataBaseURL, log)
	cacheTTL := time.Duration(cfg.PriceCacheTTLDays) * 24 * time.Hour
	provider, err := marketdata.NewCachedProvider(stooq, cacheDB.Conn(), cacheTTL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price cache")
	}
	synthetic := marketdata.NewSyntheticGenerator(log)

	// Solvers: the classical mean-variance solver always exists; the
	// variational solver routes through it when no backend is available.
	classical := optimization.NewClassicalSolver(cfg.RiskFreeRate, log)
	backend := quantum.ProbeBackend(cfg.QuantumBackend, log)
	quantumSolver := quantum.NewSolver(backend, cfg.QuantumBits, classical, log)

	harness := backtest.NewHarness(provider, classical, cfg.RiskFreeRate, nil, log)

	advisorService := advisor.NewService(
		provider,
		synthetic,
		classical,
		quantumSolver,
		harness,
		cfg.RiskFreeRate,
		cfg.FrontierSamples,
		log,
	)

	backendName := ""
	if backend != nil {
		backendName = backend.Name()
	}

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		AdvisorHandlers: advisorhandlers.NewHandler(advisorService, log),
		QuantumBackend:  backendName,
	})

	// Nightly cache prune keeps the price cache bounded.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 3 * * *", func() {
		if err := provider.Prune(cacheTTL); err != nil {
			log.Error().Err(err).Msg("Price cache prune failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache prune")
	}
	scheduler.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
