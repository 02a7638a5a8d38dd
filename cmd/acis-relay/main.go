package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/acis-toolkit/internal/api/http"
	"github.com/i474232898/acis-toolkit/internal/climate"
	"github.com/i474232898/acis-toolkit/internal/config"
	"github.com/i474232898/acis-toolkit/internal/scheduler"
	"github.com/i474232898/acis-toolkit/internal/store"
	"github.com/i474232898/acis-toolkit/internal/webservices"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := cfg.NewLogger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ACIS client with resilience (rate limit + backoff + circuit breaker).
	client := webservices.NewClient(webservices.Config{
		BaseURL:   cfg.BaseURL,
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
		RateLimit: rate.Limit(cfg.RateLimit),
		RateBurst: cfg.RateBurst,
		Logger:    log.WithField("component", "webservices"),
		Metrics:   webservices.NewMetrics(registry),
	})

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := climate.NewService(memStore, client, log.WithField("component", "climate"))

	// Scheduler that periodically fetches and stores job snapshots.
	sched := scheduler.New(cfg.Jobs, cfg.FetchInterval, service, log.WithField("component", "scheduler"))
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "acis-relay",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "acis-relay",
			"jobs":    memStore.Keys(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Info("fiber server stopped")
		}
	}()
	log.WithField("port", cfg.Port).Info("acis-relay listening")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
}
