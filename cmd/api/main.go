package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/chat_app/configs"
	"github.com/anjiri1684/chat_app/database"
	"github.com/anjiri1684/chat_app/handlers"
	"github.com/anjiri1684/chat_app/jobs"
	"github.com/anjiri1684/chat_app/notifications"
	"github.com/anjiri1684/chat_app/presence"
	"github.com/anjiri1684/chat_app/routes"
	"github.com/anjiri1684/chat_app/services"
	"github.com/anjiri1684/chat_app/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database connected and migrated")
	store := database.NewStore(db)

	var tracker presence.Tracker = presence.NewMemory(cfg.PresenceTTL)
	if cfg.RedisAddr != "" {
		r, err := presence.Connect(ctx, cfg.RedisAddr, cfg.PresenceTTL)
		if err != nil {
			return err
		}
		defer r.Close()
		tracker = r
		logger.Info("Presence backed by Redis", "addr", cfg.RedisAddr)
	}

	var media handlers.MediaStore = services.NoMedia{}
	if cfg.CloudinaryURL != "" {
		cld, err := services.NewCloudinary(cfg.CloudinaryURL, cfg.UploadFolder)
		if err != nil {
			return err
		}
		media = cld
	}

	hub := websocket.NewHub(store, tracker, logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	reconciler := &jobs.PresenceReconciler{Store: store, Tracker: tracker, Logger: logger}
	reconciler.Run()
	c := cron.New()
	if _, err := c.AddJob("*/5 * * * *", reconciler); err != nil {
		return err
	}
	c.Start()
	logger.Info("Presence reconciliation scheduled")

	h := &handlers.Handler{
		Store:    store,
		Media:    media,
		Presence: tracker,
		ICE: services.ICEConfig{
			STUNURLs:   cfg.STUNURLs,
			TURNURLs:   cfg.TURNURLs,
			TURNSecret: cfg.TURNSecret,
			TURNTTL:    cfg.TURNTTL,
		},
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		Logger:    logger,
	}
	if mailer := notifications.NewBrevoService(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName, logger); mailer != nil {
		h.Mailer = mailer
	}

	app := fiber.New(fiber.Config{
		AppName:      "Chat App",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		MaxAge:       86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Register(app, h, hub)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		stop()
		<-c.Stop().Done()
		<-hubDone
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	<-c.Stop().Done()
	<-hubDone
	return nil
}
