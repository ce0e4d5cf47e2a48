package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"water-quality-platform/internal/cache"
	"water-quality-platform/internal/config"
	"water-quality-platform/internal/generator"
	"water-quality-platform/internal/handlers"
	"water-quality-platform/internal/middleware"
	"water-quality-platform/internal/services"
	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("water-quality-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	logger.Info(ctx, "[STARTUP] Starting water quality API server", logging.Fields{
		"version":       "1.0.0",
		"server_host":   cfg.Server.Host,
		"server_port":   cfg.Server.Port,
		"cache_backend": cfg.Cache.Backend,
		"days":          cfg.Generator.Days,
		"seed":          cfg.Generator.Seed,
		"stations":      len(cfg.Generator.Stations),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("water_quality")

	// Initialize dataset cache
	datasetCache, err := newDatasetCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize dataset cache", logging.Fields{
			"backend": cfg.Cache.Backend,
		}, err)
	}
	defer datasetCache.Close()

	// Initialize services
	datasetService := services.NewDatasetService(settingsFromConfig(cfg), datasetCache, logger, metricsCollector)
	dashboardService := services.NewDashboardService(logger, metricsCollector)
	exportService := services.NewExportService(logger, metricsCollector)

	// Warm the cache so the first request does not pay for generation
	if err := datasetService.Refresh(ctx, "startup"); err != nil {
		logger.Error(ctx, "[STARTUP_ERROR] Initial dataset generation failed", logging.Fields{}, err)
	}

	// Scheduled refresh
	scheduler := cron.New()
	if cfg.Refresh.Schedule != "" {
		_, err := scheduler.AddFunc(cfg.Refresh.Schedule, func() {
			if err := datasetService.Refresh(ctx, "schedule"); err != nil {
				logger.Error(ctx, "[REFRESH_ERROR] Scheduled dataset refresh failed", logging.Fields{}, err)
			}
		})
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to schedule dataset refresh", logging.Fields{
				"schedule": cfg.Refresh.Schedule,
			}, err)
		}
		scheduler.Start()
		logger.Info(ctx, "[REFRESH_SCHEDULED] Dataset refresh scheduled", logging.Fields{
			"schedule": cfg.Refresh.Schedule,
		})
	}

	// Hot reload of generator settings
	if path := os.Getenv(config.ConfigFileEnv); path != "" {
		go func() {
			err := config.Watch(ctx, path, logger, func(next *config.Config) {
				if err := datasetService.UpdateSettings(ctx, settingsFromConfig(next)); err != nil {
					logger.Error(ctx, "[CONFIG_APPLY_ERROR] Failed to apply reloaded configuration", logging.Fields{
						"path": path,
					}, err)
				}
			})
			if err != nil {
				logger.Error(ctx, "[CONFIG_WATCH_ERROR] Config watcher stopped", logging.Fields{
					"path": path,
				}, err)
			}
		}()
	}

	// Initialize handlers
	waterHandler := handlers.NewWaterHandler(datasetService, dashboardService, exportService, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Metrics(metricsCollector, logger))

	// Register routes
	waterHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Stop background work before draining requests
	stop()
	<-scheduler.Stop().Done()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

func newDatasetCache(ctx context.Context, cfg config.CacheConfig) (cache.DatasetCache, error) {
	switch cfg.Backend {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return redisCache, nil
	default:
		return cache.NewMemoryCache(cfg.TTL), nil
	}
}

func settingsFromConfig(cfg *config.Config) services.Settings {
	anomalies := make([]services.AnomalySpec, 0, len(cfg.Anomalies))
	for _, a := range cfg.Anomalies {
		anomalies = append(anomalies, services.AnomalySpec{
			Station:       a.Station,
			Parameter:     a.Parameter,
			Offset:        a.Offset,
			DurationHours: a.DurationHours,
			Severity:      generator.Severity(a.Severity),
		})
	}

	return services.Settings{
		Days:      cfg.Generator.Days,
		Seed:      cfg.Generator.Seed,
		Frequency: cfg.Frequency(),
		Stations:  cfg.Generator.Stations,
		Anomalies: anomalies,
	}
}
