package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradejournal/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// HTTP
	HTTPPort string

	// Analytics defaults
	InitialCapital      float64 // Starting capital for equity curve and exposure (user setting)
	RRFallbackDivisor   float64 // Risk assumed as reward/divisor when no stop loss is set
	MonthlyWindowMonths int     // Trailing window for monthly aggregates

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// HTTP
	cfg.HTTPPort = getEnv("HTTP_PORT", "8080")
	if cfg.HTTPPort == "" {
		errs = append(errs, "HTTP_PORT must be set")
	}

	// Analytics defaults
	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if cfg.InitialCapital <= 0 {
		errs = append(errs, "INITIAL_CAPITAL must be positive")
	}

	cfg.RRFallbackDivisor, err = getEnvAsFloatRequired("RR_FALLBACK_DIVISOR", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RR_FALLBACK_DIVISOR: %v", err))
	} else if cfg.RRFallbackDivisor <= 0 {
		errs = append(errs, "RR_FALLBACK_DIVISOR must be positive")
	}

	cfg.MonthlyWindowMonths = getEnvAsInt("MONTHLY_WINDOW_MONTHS", 6)
	if cfg.MonthlyWindowMonths <= 0 {
		errs = append(errs, "MONTHLY_WINDOW_MONTHS must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/tradejournal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// For non-required fields the default is acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
