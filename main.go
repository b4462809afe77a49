package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/gmp-tracker/config"
	"github.com/fenilmodi00/gmp-tracker/handlers"
	"github.com/fenilmodi00/gmp-tracker/jobs"
	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig().ToUnified()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	shared.ConfigureLogging(cfg.Logging)

	log := logrus.WithField("component", "main")
	log.WithField("config", cfg.Describe()).Info("Configuration loaded")
	if configJSON, err := cfg.ToJSON(); err == nil {
		log.Debugf("Effective configuration: %s", configJSON)
	}

	// Pipeline: gateway -> dashboard (filter, sort, format, stats)
	gateway := services.NewGMPGateway(cfg)
	dashboard := services.NewDashboardService(gateway)

	// Keep the snapshot warm so requests rarely wait on the upstream
	refreshJob := jobs.NewSnapshotRefreshJob(gateway, cfg.Service.HTTPRequestTimeout*time.Duration(cfg.Service.MaxRetryAttempts+1))
	refreshJob.StartPeriodicUpdates(refreshInterval(cfg.Cache.SnapshotTTL))

	// Initialize handlers
	offeringHandler := handlers.NewOfferingHandler(dashboard)
	refreshHandler := handlers.NewRefreshHandler(dashboard, gateway)
	performanceHandler := handlers.NewPerformanceHandler(dashboard, gateway)

	// Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.Logging.ServiceName,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	handlers.RegisterRoutes(app, offeringHandler, refreshHandler, performanceHandler)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("Shutting down")
		refreshJob.Stop()
		gateway.LogMetricsSummary()
		gateway.Close()
		dashboard.Utility.LogMetricsSummary()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	log.Infof("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// refreshInterval checks staleness four times per TTL, never more than once a minute
func refreshInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		return time.Minute
	}
	return interval
}
