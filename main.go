package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"path/filepath"

	"riskTracker/config"
	"riskTracker/internal/adapters/docstore"
	"riskTracker/internal/adapters/logger"
	"riskTracker/internal/adapters/prefstore"
	"riskTracker/internal/adapters/sqlite"
	"riskTracker/internal/app"
	"riskTracker/internal/domain"
	"riskTracker/internal/ports"
	"riskTracker/internal/repository"
)

// backendStorage is the combined surface every backend satisfies; selection
// happens here exactly once, at process start.
type backendStorage interface {
	ports.TradeStorage
	ports.ConfigStorage
}

func newBackend(cfg *config.Config, appLogger ports.Logger) (backendStorage, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return sqlite.New(sqlite.Config{DBPath: cfg.DBPath, AppVersion: config.AppVersion, Logger: appLogger})
	case config.BackendDocStore:
		return docstore.New(docstore.Config{Dir: filepath.Join(cfg.DataDir, "docstore"), AppVersion: config.AppVersion, Logger: appLogger})
	case config.BackendPrefStore:
		return prefstore.New(prefstore.Config{Path: filepath.Join(cfg.DataDir, "preferences.json"), AppVersion: config.AppVersion, Logger: appLogger})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Storage Backend
	store, err := newBackend(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to construct storage backend")
		log.Fatalf("FATAL: Failed to construct storage backend: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize storage backend")
		log.Fatalf("FATAL: Failed to initialize storage backend: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing storage backend")
		}
	}()
	appLogger.Info(ctx, "Storage backend initialized", map[string]interface{}{"backend": store.Name()})

	// 4. Initialize Repository
	tradeRepo, err := repository.New(store, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade repository")
		log.Fatalf("FATAL: Failed to initialize trade repository: %v", err)
	}

	// 5. Recover persisted risk settings, falling back to env defaults
	settings := domain.RiskSettings{
		AccountBalance:         cfg.AccountBalance,
		MaxDrawdown:            cfg.MaxDrawdown,
		LossPerTradePercentage: cfg.LossPerTradePercentage,
		IsDynamicMaxDrawdown:   cfg.DynamicMaxDrawdown,
	}
	hasStored, err := store.HasSettings(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to probe stored risk settings")
		log.Fatalf("FATAL: Failed to probe stored risk settings: %v", err)
	}
	if hasStored {
		stored, err := store.LoadSettings(ctx)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to load stored risk settings")
			log.Fatalf("FATAL: Failed to load stored risk settings: %v", err)
		}
		if stored != nil {
			settings = *stored
			appLogger.Info(ctx, "Recovered persisted risk settings")
		}
	}

	// 6. Initialize Risk Service
	riskService, err := app.NewRiskService(appLogger, tradeRepo, store, store, settings)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk service")
		log.Fatalf("FATAL: Failed to initialize risk service: %v", err)
	}

	// 7. Rehydrate running balance from persisted trades
	if err := riskService.InitializeCurrentBalance(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to rehydrate current balance")
		log.Fatalf("FATAL: Failed to rehydrate current balance: %v", err)
	}
	if err := riskService.PersistSettings(ctx); err != nil {
		appLogger.Error(ctx, err, "Failed to persist risk settings")
	}

	// 8. Report current state
	stats, err := riskService.GetTradingStatistics(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to compute trading statistics")
	} else {
		appLogger.Info(ctx, "Trading statistics", map[string]interface{}{
			"trades":          stats.TotalTrades,
			"totalPnL":        stats.TotalProfitLoss,
			"winRate":         stats.WinRate,
			"profitFactor":    stats.ProfitFactor,
			"maxLossPerTrade": stats.MaxLossPerTrade,
		})
	}
	appLogger.Info(ctx, "Risk status", map[string]interface{}{
		"status": string(riskService.CheckRiskStatus(ctx)),
	})

	appLogger.Info(ctx, "Risk tracker ready")
}
