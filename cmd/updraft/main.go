package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/updraft-io/updraft/pkg/config"
	"github.com/updraft-io/updraft/pkg/descriptor"
	"github.com/updraft-io/updraft/pkg/diag"
	"github.com/updraft-io/updraft/pkg/history"
	"github.com/updraft-io/updraft/pkg/inventory"
	"github.com/updraft-io/updraft/pkg/observability"
	"github.com/updraft-io/updraft/pkg/reconcile"
	"github.com/updraft-io/updraft/pkg/staging"
	"github.com/updraft-io/updraft/pkg/updater"
)

func main() {
	serve := flag.Bool("serve", false, "Keep the diagnostics server running after the update run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrusLevel(cfg.Observability.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		observability.ShutdownOTel(shutdownCtx, providers, logger)
	}()

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	blacklist, err := descriptor.LoadBlacklist(cfg.Paths.BrokenFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load broken plugin list, continuing with an empty one")
		blacklist = descriptor.NewBlacklist()
	}

	disabled, err := inventory.LoadDisabledStore(cfg.Paths.DisabledFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load disabled plugin list, continuing with an empty one")
		disabled = inventory.NewDisabledStore()
	}

	cache, err := inventory.NewManifestCache(512)
	if err != nil {
		logger.WithError(err).Warn("Failed to create manifest cache, scanning without one")
		cache = nil
	}
	scanner := inventory.NewScanner(cfg.Paths.PluginsDir, disabled, cache, log)

	repo, err := staging.NewRepository(cfg.Paths.StagingDir)
	if err != nil {
		logger.WithError(err).Error("Failed to open staging repository")
		os.Exit(1)
	}

	var histStore *history.Store
	if cfg.Paths.HistoryDBPath != "" {
		db, err := sql.Open("sqlite3", cfg.Paths.HistoryDBPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to open history database, continuing without history")
		} else {
			defer db.Close()
			store := history.NewStore(db)
			if err := store.Migrate(ctx); err != nil {
				logger.WithError(err).Warn("Failed to migrate history schema, continuing without history")
			} else {
				histStore = store
			}
		}
	}

	opts := updater.Options{
		Staging:         repo,
		Inventory:       scanner,
		Enablement:      disabled,
		Reconciler:      reconcile.NewReconciler(cfg.Updater.HostBuild, blacklist),
		LoadConcurrency: cfg.Updater.LoadConcurrency,
		Log:             log,
		Metrics:         metrics,
	}
	if histStore != nil {
		opts.History = histStore
	}

	u, err := updater.New(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to create updater")
		os.Exit(1)
	}

	var httpSrv *http.Server
	if *serve {
		var histSrc diag.HistorySource
		if histStore != nil {
			histSrc = histStore
		}

		httpSrv = &http.Server{
			Addr:         cfg.Diag.Addr,
			Handler:      diag.NewServer(u.Result(), histSrc, registry, log),
			ReadTimeout:  cfg.Diag.ReadTimeout,
			WriteTimeout: cfg.Diag.WriteTimeout,
		}
		go func() {
			logger.Infof("Diagnostics server listening on %s", cfg.Diag.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Diagnostics server failed")
				stop()
			}
		}()

		watcher := staging.NewWatcher(repo, log)
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.WithError(err).Warn("Staging watcher stopped")
			}
		}()
	}

	stats, err := u.Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Update run failed")
	} else {
		logger.Infof("Update run complete: %d prepared, %d applied", stats.UpdatesPrepared, stats.PluginsUpdated)
	}

	if *serve {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Diag.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Diagnostics server shutdown failed")
		}
	} else if err != nil {
		os.Exit(1)
	}
}

// logrusLevel maps the configured level onto logrus levels for the pipeline
// packages.
func logrusLevel(level observability.LogLevel) logrus.Level {
	switch level {
	case observability.DebugLevel:
		return logrus.DebugLevel
	case observability.WarnLevel:
		return logrus.WarnLevel
	case observability.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
