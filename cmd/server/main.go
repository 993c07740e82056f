package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bobby-s-dev/weather-dashboard/internal/api"
	"github.com/bobby-s-dev/weather-dashboard/internal/catalog"
	"github.com/bobby-s-dev/weather-dashboard/internal/config"
	"github.com/bobby-s-dev/weather-dashboard/internal/metrics"
	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/services"
	"github.com/bobby-s-dev/weather-dashboard/internal/session"
	"github.com/bobby-s-dev/weather-dashboard/internal/store"
)

func main() {
	// Initialize logger
	level := zap.NewAtomicLevel()
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	logger, _ := zapConfig.Build()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Dashboard")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if lvl, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		level.SetLevel(lvl)
	} else {
		logger.Warn("Unknown LOG_LEVEL, keeping info", zap.String("level", cfg.Server.LogLevel))
	}

	// City catalog; the dashboard still serves without it
	cities, err := catalog.Load(cfg.Storage.CitiesFile, logger)
	if err != nil {
		logger.Error("City catalog unavailable", zap.String("path", cfg.Storage.CitiesFile), zap.Error(err))
		cities = catalog.Empty()
	}

	units, err := models.ParseUnits(cfg.Defaults.Units)
	if err != nil {
		logger.Warn("Invalid DEFAULT_UNITS, using celsius", zap.String("units", cfg.Defaults.Units))
		units = models.DefaultUnits
	}
	defaults := models.Preferences{
		SelectedCities: cities.ByNames(cfg.Defaults.Cities...),
		Units:          units,
	}
	if len(defaults.SelectedCities) < len(cfg.Defaults.Cities) {
		logger.Warn("Some default cities are not in the catalog",
			zap.Strings("configured", cfg.Defaults.Cities),
			zap.Int("resolved", len(defaults.SelectedCities)))
	}

	// User store
	users, err := store.Open(store.Config{
		Path:     cfg.Storage.UsersFile,
		Defaults: defaults,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open credential file", zap.String("path", cfg.Storage.UsersFile), zap.Error(err))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize aggregator
	aggregator := services.NewAggregator(cfg, logger, m)

	sessions := session.NewManager(session.Config{
		Expiration:   cfg.Session.Expiration,
		CookieSecure: cfg.Session.CookieSecure,
	}, logger)

	// Create Fiber app
	app := api.NewApp(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	// Setup handlers and routes
	handler := api.NewHandler(aggregator, users, cities, sessions, m, logger)
	api.SetupRoutes(app, handler, api.RouteConfig{
		CookieKey: session.CookieKey(cfg.Session.Secret),
		Limiter:   api.NewLoginLimiter(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst),
		Gatherer:  registry,
	}, logger)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server",
			zap.String("address", addr),
			zap.Int("cities", cities.Len()),
			zap.Int("users", users.Len()))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown Fiber app
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
