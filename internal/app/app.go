// Package app wires configuration, storage, clients, and services into the
// shared core used by cmd/stockgrid-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"stockgrid/internal/clients/yahoo"
	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/services/prices"
	"stockgrid/internal/services/update"
	"stockgrid/internal/services/watchlist"
	"stockgrid/internal/storage/sqlite"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	ChartClient      interfaces.ChartClient
	PriceService     interfaces.PriceService
	UpdateService    interfaces.UpdateService
	WatchlistService interfaces.WatchlistService
	Scheduler        interfaces.RefreshScheduler
	StartupTime      time.Time

	cron *cron.Cron
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the upstream client, and all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	// Check provided path, STOCKGRID_CONFIG, then binary dir, then fallback.
	if configPath == "" {
		configPath = os.Getenv("STOCKGRID_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "stockgrid.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockgrid.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := sqlite.NewManager(config.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	chartClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Upstream.BaseURL),
		yahoo.WithRelayPrefix(config.Upstream.RelayPrefix),
		yahoo.WithRateLimit(config.Upstream.RateLimit),
		yahoo.WithTimeout(config.Upstream.GetTimeout()),
		yahoo.WithLogger(logger),
	)

	resolver := prices.NewResolver(chartClient, logger)
	hydrator := prices.NewHydrator(storageManager.Prices(), resolver, logger)
	scheduler := prices.NewScheduler(storageManager.Prices(), resolver, logger,
		prices.WithCooldown(config.Refresh.GetCooldown()),
		prices.WithDiagnostics(!config.IsProduction()),
	)

	priceService := prices.NewService(
		storageManager.Prices(),
		storageManager.Watchlist(),
		hydrator,
		resolver,
		scheduler,
		logger,
		prices.WithMaxSymbols(config.Query.GetMaxSymbols()),
	)

	updateService := update.NewService(
		storageManager.Prices(),
		storageManager.Watchlist(),
		storageManager.JobLogs(),
		resolver,
		logger,
		update.WithLookbackYears(config.Update.GetLookbackYears()),
	)

	watchlistService := watchlist.NewService(
		storageManager.Watchlist(),
		storageManager.JobLogs(),
		config.Query.DefaultWatchlist,
		logger,
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		ChartClient:      chartClient,
		PriceService:     priceService,
		UpdateService:    updateService,
		WatchlistService: watchlistService,
		Scheduler:        scheduler,
		StartupTime:      time.Now(),
	}

	if err := watchlistService.EnsureDefaults(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Default watchlist seeding failed")
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("version", common.GetVersion()).
		Msg("Application initialized")

	return a, nil
}

// StartCron registers the scheduled daily update and starts the cron runner.
// An empty cron spec disables scheduling.
func (a *App) StartCron() error {
	spec := a.Config.Update.Cron
	if spec == "" {
		a.Logger.Info().Msg("Daily update cron disabled")
		return nil
	}

	a.cron = cron.New()
	_, err := a.cron.AddFunc(spec, func() {
		if _, err := a.UpdateService.RunDailyUpdate(context.Background(), time.Now()); err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled daily update failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid update cron spec %q: %w", spec, err)
	}

	a.cron.Start()
	a.Logger.Info().Str("spec", spec).Msg("Daily update cron started")
	return nil
}

// Close stops the cron runner, waits for in-flight background refreshes, and
// closes storage.
func (a *App) Close() error {
	if a.cron != nil {
		ctx := a.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
			a.Logger.Warn().Msg("Timed out waiting for cron jobs")
		}
	}

	a.Scheduler.Drain()

	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
