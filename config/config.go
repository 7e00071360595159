package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"riskTracker/internal/ports"
)

// AppVersion stamps persisted settings and export bundles.
const AppVersion = "1.0.0"

// Backend identifies a storage backend implementation.
type Backend string

const (
	BackendSQLite    Backend = "sqlite"
	BackendDocStore  Backend = "docstore"
	BackendPrefStore Backend = "prefstore"
)

// Config holds all application configuration.
type Config struct {
	// Storage
	StorageBackend Backend
	DataDir        string
	DBPath         string

	// Risk Policy Defaults (used when no settings are persisted yet)
	AccountBalance         float64
	MaxDrawdown            float64
	LossPerTradePercentage float64
	DynamicMaxDrawdown     bool

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Storage
	backend := strings.ToLower(getEnv("STORAGE_BACKEND", string(BackendSQLite)))
	switch Backend(backend) {
	case BackendSQLite, BackendDocStore, BackendPrefStore:
		cfg.StorageBackend = Backend(backend)
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be one of sqlite, docstore, prefstore (got %q)", backend))
	}

	cfg.DataDir = getEnv("DATA_DIR", "./data")
	if cfg.DataDir == "" {
		errs = append(errs, "DATA_DIR must be set")
	}
	cfg.DBPath = getEnv("DB_PATH", cfg.DataDir+"/risk_tracker.db")

	// Risk policy defaults
	cfg.AccountBalance, err = getEnvAsFloatRequired("ACCOUNT_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ACCOUNT_BALANCE: %v", err))
	} else if cfg.AccountBalance <= 0 {
		errs = append(errs, "ACCOUNT_BALANCE must be positive")
	}

	cfg.MaxDrawdown, err = getEnvAsFloatRequired("MAX_DRAWDOWN", 500.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN: %v", err))
	} else if cfg.MaxDrawdown < 0 {
		errs = append(errs, "MAX_DRAWDOWN cannot be negative")
	}

	cfg.LossPerTradePercentage, err = getEnvAsFloatRequired("LOSS_PER_TRADE_PERCENTAGE", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOSS_PER_TRADE_PERCENTAGE: %v", err))
	} else if cfg.LossPerTradePercentage <= 0 || cfg.LossPerTradePercentage > 1 {
		errs = append(errs, "LOSS_PER_TRADE_PERCENTAGE must be within (0, 1]")
	}

	cfg.DynamicMaxDrawdown = getEnvAsBool("DYNAMIC_MAX_DRAWDOWN", false)

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrConfiguration, strings.Join(errs, "; "))
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
