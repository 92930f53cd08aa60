// Package app wires the storage layer, services, and HTTP handlers into one
// application instance with a clean startup and shutdown order.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/handlers"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/services/analysis"
	"github.com/ternarybob/quaestus/internal/services/cache"
	"github.com/ternarybob/quaestus/internal/services/events"
	"github.com/ternarybob/quaestus/internal/services/llm"
	"github.com/ternarybob/quaestus/internal/services/market"
	"github.com/ternarybob/quaestus/internal/services/portfolio"
	"github.com/ternarybob/quaestus/internal/services/scheduler"
	"github.com/ternarybob/quaestus/internal/services/scraper"
	"github.com/ternarybob/quaestus/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Services
	EventService     interfaces.EventService
	CacheService     *cache.Service
	LLMService       interfaces.LLMService
	MarketService    *market.Service
	ScraperService   *scraper.Service
	AnalysisService  *analysis.Service
	PortfolioService *portfolio.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	MarketHandler    *handlers.MarketHandler
	ScraperHandler   *handlers.ScraperHandler
	PortfolioHandler *handlers.PortfolioHandler
	AnalysisHandler  *handlers.AnalysisHandler
	SettingsHandler  *handlers.SettingsHandler
	AdminHandler     *handlers.AdminHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	if err := app.initServices(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	app.WSHandler.Start()

	logger.Info().
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	a.CacheService = cache.NewService(a.Logger)

	llmService, err := llm.NewService(context.Background(), a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}
	a.LLMService = llmService

	a.MarketService = market.NewService(
		a.StorageManager.StockStorage(),
		a.CacheService,
		a.Config.Cache.MarketOverviewTTL,
		a.Logger,
	)

	a.ScraperService = scraper.NewService(
		&a.Config.Scraper,
		a.StorageManager.StockStorage(),
		a.EventService,
		a.Logger,
	)
	// Ingest drops the cached market views so reads reflect new data.
	a.ScraperService.OnIngest(a.MarketService.Invalidate)

	a.AnalysisService = analysis.NewService(
		a.StorageManager.StockStorage(),
		a.StorageManager.AnalysisStorage(),
		a.LLMService,
		a.EventService,
		a.Logger,
	)

	a.PortfolioService = portfolio.NewService(
		a.StorageManager.HoldingStorage(),
		a.StorageManager.StockStorage(),
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(&a.Config.Scheduler, a.ScraperService, a.Logger)
	a.SchedulerService.OnComplete(a.warmCaches)

	return nil
}

func (a *App) initHandlers() {
	a.MarketHandler = handlers.NewMarketHandler(a.MarketService, a.Logger)
	a.ScraperHandler = handlers.NewScraperHandler(a.ScraperService, a.MarketService, a.Logger)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.PortfolioService, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.AnalysisService, a.Logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.StorageManager.KeyValueStorage(), a.Logger)
	a.AdminHandler = handlers.NewAdminHandler(a.StorageManager, a.Config.Storage.BackupDir, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Start launches background work: the scheduler, when enabled.
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// warmCaches recomputes the market views after a scheduled scrape so the
// first request after a refresh is served hot.
func (a *App) warmCaches() {
	ctx := context.Background()
	if _, err := a.MarketService.GetOverview(ctx, "", true); err != nil {
		a.Logger.Warn().Err(err).Msg("Overview cache warm failed")
	}
	if _, err := a.MarketService.GetQuarters(ctx, true); err != nil {
		a.Logger.Warn().Err(err).Msg("Quarter cache warm failed")
	}
}

// Close shuts down components in reverse initialization order.
func (a *App) Close() error {
	a.SchedulerService.Stop()
	a.WSHandler.Stop()
	a.ScraperService.Close()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to close storage")
		return err
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
