package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/map-bootstrap/internal/adapter/console"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/filesystem"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/location"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/network"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/region"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/resource"
	"github.com/vertextoedge/map-bootstrap/internal/adapter/sqlite"
	"github.com/vertextoedge/map-bootstrap/internal/config"
	"github.com/vertextoedge/map-bootstrap/internal/domain/event"
	"github.com/vertextoedge/map-bootstrap/internal/logger"
	"github.com/vertextoedge/map-bootstrap/internal/service/bootstrap"
	"github.com/vertextoedge/map-bootstrap/internal/service/maintenance"
	"github.com/vertextoedge/map-bootstrap/internal/service/server"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	wifiOnly := flag.String("wifi-only", "", "Persist the WiFi-only downloads preference (true|false)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting map-bootstrap",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Open database
	store, err := sqlite.OpenWithOptions(cfg.Database.Path, sqlite.Options{
		CacheSizeMB:   cfg.Database.CacheSizeMB,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		Logger:        logger.Component("store"),
	})
	if err != nil {
		zapLogger.Error("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
		return 1
	}
	defer store.Close()

	if err := store.SeedPreferences(cfg.Network.WifiOnlyDefault); err != nil {
		zapLogger.Error("failed to seed preferences", zap.Error(err))
		return 1
	}
	if *wifiOnly != "" {
		enabled, err := strconv.ParseBool(*wifiOnly)
		if err != nil {
			zapLogger.Error("invalid -wifi-only value", zap.String("value", *wifiOnly))
			return 2
		}
		if err := store.SetWifiOnlyDownloadsEnabled(enabled); err != nil {
			zapLogger.Error("failed to save preference", zap.Error(err))
			return 1
		}
	}
	if err := store.ImportRegions(cfg.Regions.CatalogRegions()); err != nil {
		zapLogger.Error("failed to import region catalog", zap.Error(err))
		return 1
	}

	// Storage
	resourceFS, err := filesystem.NewManagerWithBufferSize(cfg.Resources.Dir, cfg.Resources.GetBufferSize())
	if err != nil {
		zapLogger.Error("failed to create resource storage", zap.Error(err))
		return 1
	}
	regionFS := resourceFS
	if cfg.Regions.Dir != cfg.Resources.Dir {
		regionFS, err = filesystem.NewManagerWithBufferSize(cfg.Regions.Dir, cfg.Resources.GetBufferSize())
		if err != nil {
			zapLogger.Error("failed to create region storage", zap.Error(err))
			return 1
		}
	}

	registry, err := region.OpenRegistry(cfg.Regions.RegistryPath)
	if err != nil {
		zapLogger.Error("failed to open region registry", zap.Error(err), zap.String("path", cfg.Regions.RegistryPath))
		return 1
	}
	defer registry.Close()

	// Engines
	resources := resource.New(resource.Config{
		BaseURL:        cfg.Resources.BaseURL,
		Files:          cfg.Resources.Files,
		MinFreeSpace:   cfg.Resources.GetMinFreeSpace(),
		RequestTimeout: cfg.Resources.GetRequestTimeout(),
		ProbeWorkers:   cfg.Resources.ProbeWorkers,
		TempFileMaxAge: cfg.Resources.GetTempFileMaxAge(),
	}, resourceFS, logger.Component("resources"))

	regions := region.New(region.Config{
		BaseURL:        cfg.Regions.BaseURL,
		RequestTimeout: cfg.Resources.GetRequestTimeout(),
	}, store, regionFS, registry, logger.Component("regions"))
	defer regions.Stop()

	monitor := network.New(network.Config{
		PollInterval:          cfg.Network.GetPollInterval(),
		WifiInterfacePrefixes: cfg.Network.WifiInterfacePrefixes,
	}, logger.Component("network"))

	provider := location.New(location.Config{
		Enabled:   cfg.Location.Enabled,
		Latitude:  cfg.Location.Latitude,
		Longitude: cfg.Location.Longitude,
		Interval:  cfg.Location.GetInterval(),
	}, logger.Component("location"))

	surface := console.New(console.Config{
		Interactive:      cfg.Surface.Interactive,
		AssumeYes:        cfg.Surface.AssumeYes,
		ProgressInterval: cfg.Surface.GetProgressInterval(),
	}, os.Stdout, logger.Component("surface"))

	// Domain events
	metrics := event.NewMetricsHandler()
	events := event.NewInMemoryDispatcher(false, func(e event.DomainEvent, err error) {
		zapLogger.Warn("event handler failed", zap.String("event", e.EventName()), zap.Error(err))
	})
	events.Subscribe(event.NewLoggingHandler(logger.Component("events")))
	events.Subscribe(metrics)
	events.Subscribe(event.NewHistoryHandler(store))

	runner := bootstrap.NewRunner(bootstrap.RunnerConfig{
		RetryOnConnectivity: cfg.Session.RetryOnConnectivity,
		MaxAttempts:         cfg.Session.MaxAttempts,
		RetryBackoff:        cfg.Session.GetRetryBackoff(),
	}, bootstrap.Deps{
		Resources:    resources,
		Regions:      regions,
		Resolver:     store,
		Location:     provider,
		Connectivity: monitor,
		Preferences:  store,
		Surface:      surface,
		Events:       events,
	}, logger.Component("bootstrap"))

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, servicesCtx := errgroup.WithContext(ctx)
	services.Go(func() error { return monitor.Run(servicesCtx) })
	services.Go(func() error { return provider.Run(servicesCtx) })
	if cfg.Surface.Interactive {
		services.Go(func() error { return surface.ReadInput(servicesCtx, os.Stdin) })
	}

	if cfg.Maintenance.Enabled {
		housekeeping := maintenance.New(&maintenance.Config{
			StaleRegionCheckInterval: cfg.Maintenance.GetStaleRegionCheckInterval(),
			StaleRegionTimeout:       cfg.Maintenance.GetStaleRegionTimeout(),
			CleanupInterval:          cfg.Maintenance.GetCleanupInterval(),
			HistoryMaxAge:            cfg.Maintenance.GetHistoryMaxAge(),
			TempFileMaxAge:           cfg.Resources.GetTempFileMaxAge(),
		}, registry, store, logger.Component("maintenance"), resourceFS, regionFS)
		services.Go(func() error { return housekeeping.Start(servicesCtx) })
	}

	var httpServer *server.Server
	if cfg.HTTP.Enabled {
		httpServer = server.New(&server.Config{
			BindAddr:     cfg.HTTP.BindAddr,
			ReadTimeout:  cfg.HTTP.GetReadTimeout(),
			WriteTimeout: cfg.HTTP.GetWriteTimeout(),
			IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
		}, server.Sources{
			Session: runner,
			Metrics: metrics,
			History: store,
			Regions: registry,
			Disk:    resourceFS,
		}, logger.Component("http"))
		services.Go(httpServer.Start)
	}

	zapLogger.Info("application started successfully",
		zap.String("resources_dir", cfg.Resources.Dir),
		zap.Bool("wifi_only", store.IsWifiOnlyDownloadsEnabled()),
	)

	outcome, runErr := runner.Run(servicesCtx)

	// Stop background services
	stop()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
		}
		cancel()
	}
	if err := services.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("service stopped with error", zap.Error(err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		zapLogger.Error("bootstrap failed", zap.Error(runErr))
	}
	zapLogger.Info("application stopped",
		zap.String("outcome", string(outcome)),
		zap.Int("attempts", runner.Attempts()),
	)

	if !outcome.Usable() {
		return 1
	}
	return 0
}
