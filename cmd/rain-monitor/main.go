package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/rainwatch/rain-monitor/internal/api/http"
	"github.com/rainwatch/rain-monitor/internal/config"
	"github.com/rainwatch/rain-monitor/internal/notify"
	"github.com/rainwatch/rain-monitor/internal/rain"
	"github.com/rainwatch/rain-monitor/internal/realtime"
	"github.com/rainwatch/rain-monitor/internal/scheduler"
	"github.com/rainwatch/rain-monitor/internal/store"
)

func main() {
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Reading store: MongoDB when configured, in-memory otherwise. A
	// database that is down at startup is not fatal; storage-dependent
	// operations fail until it comes back (the watchdog reports both).
	var readingStore rain.Store
	if cfg.MongoURI != "" {
		mongoStore, err := store.NewMongoStore(context.Background(), cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Error("failed to configure mongodb store", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(ctx)
		}()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := mongoStore.Ping(pingCtx); err != nil {
			log.Error("mongodb unreachable at startup", "error", err)
		} else {
			log.Info("connected to mongodb", "database", cfg.MongoDB)
		}
		cancel()

		readingStore = mongoStore
	} else {
		log.Warn("MONGO_URI not set; readings are kept in memory only")
		readingStore = store.NewMemoryStore(cfg.StoreMaxHistory)
	}

	// Real-time viewer hub and push notification pipeline.
	hub := realtime.NewHub()
	registry := notify.NewRegistry()
	sender := notify.NewWebPushSender(cfg.VAPID)
	dispatcher := notify.NewDispatcher(registry, sender, log)

	tracker := rain.NewTracker(cfg.Cooldown, cfg.PerDeviceSessions)
	service := rain.NewService(readingStore, cfg.Thresholds, tracker, hub, dispatcher, log)

	watchdog := scheduler.New(readingStore, cfg.WatchdogInterval, log)
	if err := watchdog.Start(); err != nil {
		log.Error("failed to start store watchdog", "error", err)
		os.Exit(1)
	}
	defer watchdog.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "rain-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigin,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:     service,
		Registry:    registry,
		Hub:         hub,
		FrontendURL: cfg.FrontendURL,
	})

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}

	// Let in-flight episode alerts and push deliveries finish.
	service.DrainAlerts()
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		log.Warn("push deliveries still in flight at shutdown", "error", err)
	}
}
