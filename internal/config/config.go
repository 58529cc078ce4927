// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string  // Base directory for the price cache database
	Port              int     // HTTP listen port
	LogLevel          string  // debug, info, warn, error
	DevMode           bool    // Relaxed CORS, pretty logging
	RiskFreeRate      float64 // Annual risk-free rate used in Sharpe calculations
	FrontierSamples   int     // Number of random portfolios sampled for the frontier
	QuantumBits       int     // Bits per asset in the discretized QUBO encoding
	QuantumBackend    string  // "anneal" or "none" (disables the variational path)
	MarketDataBaseURL string  // Base URL for the daily-close data provider
	PriceCacheTTLDays int     // Days before cached price batches are considered stale
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUANTFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("QUANTFOLIO_PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		RiskFreeRate:      getEnvAsFloat("RISK_FREE_RATE", 0.02),
		FrontierSamples:   getEnvAsInt("FRONTIER_SAMPLES", 100),
		QuantumBits:       getEnvAsInt("QUANTUM_BITS_PER_ASSET", 4),
		QuantumBackend:    getEnv("QUANTUM_BACKEND", "anneal"),
		MarketDataBaseURL: getEnv("MARKET_DATA_BASE_URL", "https://stooq.com"),
		PriceCacheTTLDays: getEnvAsInt("PRICE_CACHE_TTL_DAYS", 1),
	}

	if cfg.QuantumBits < 1 || cfg.QuantumBits > 8 {
		return nil, fmt.Errorf("QUANTUM_BITS_PER_ASSET must be in [1, 8], got %d", cfg.QuantumBits)
	}
	if cfg.FrontierSamples < 1 {
		return nil, fmt.Errorf("FRONTIER_SAMPLES must be positive, got %d", cfg.FrontierSamples)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64
func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
