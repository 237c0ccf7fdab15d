package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "espresso_panel/docs"
	"espresso_panel/internal/config"
	"espresso_panel/internal/handlers"
	"espresso_panel/internal/logger"
	"espresso_panel/internal/repository"
	"espresso_panel/internal/repository/db"
	"espresso_panel/internal/server"
	"espresso_panel/internal/service"
	"espresso_panel/internal/settings"
	"espresso_panel/internal/shotlog"

	"github.com/spf13/afero"
)

const shutdownTimeout = 10 * time.Second

// @title                       Espresso Panel API
// @version                     1.0
// @description                 Brew session control, settings and shot history.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DBPath, "err", err)
	}
	defer closeDB(sqlDB, log)

	repos := repository.NewRepository(sqlDB)
	osFs := afero.NewOsFs()

	store := settings.NewStore(settingsBackend(cfg, repos, osFs), log.With("component", "settings"))
	loadSettings(context.Background(), store, log)

	bus := service.NewBus()
	shots := shotlog.New(osFs, shotlog.Options{
		Dir:          cfg.ShotLogDir,
		Suffix:       cfg.ShotLogSuffix,
		SamplePeriod: cfg.Tick,
		AutoFlush:    cfg.ShotLogAutoFlush,
		Log:          log.With("component", "shotlog"),
	})
	sim := service.NewBoilerSimulator(store, repos.EventRepo, log.With("component", "simulator"))

	coord := service.NewBrewCoordinator(service.BrewConfig{
		Tick:          cfg.Tick,
		ShotDuration:  cfg.ShotDuration,
		AngleStep:     cfg.AngleStep,
		BandHalfWidth: cfg.BandHalfWidth,
		PumpScale:     cfg.PumpScale,
	}, service.BrewDeps{
		Store:      store,
		Shots:      shots,
		Controller: sim,
		Events:     repos.EventRepo,
		History:    repos.ShotRepo,
		Bus:        bus,
		Log:        log.With("component", "brew"),
	})
	sim.SetListener(coord)

	services := service.NewService(repos, store, coord, bus, service.AuthConfig{
		SigningKey: cfg.SigningKey,
		TokenTTL:   cfg.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, log.With("component", "http"))

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if cfg.SimulatorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Run(ctx, cfg.SimulatorTick)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		coord.Run(ctx)
	}()

	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, log)
	// the coordinator flushes an open shot before returning
	wg.Wait()
}

// settingsBackend picks the configured persistence for the settings store.
func settingsBackend(cfg config.Config, repos *repository.Repository, fs afero.Fs) settings.Backend {
	if cfg.SettingsBackend == config.BackendSQLite {
		return repos.Settings
	}
	return settings.NewFileBackend(fs, cfg.SettingsPath)
}

// loadSettings restores the store. When even the defaults cannot be saved,
// they stay in memory and the panel runs without persistence.
func loadSettings(ctx context.Context, store *settings.Store, log *logger.Logger) {
	if err := store.Load(ctx); err != nil {
		log.Warnw("settings_persistence_unavailable", "err", err)
	}
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
