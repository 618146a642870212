package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/insider-one/order-confirmation-service/docs"
	"github.com/insider-one/order-confirmation-service/internal/channel"
	"github.com/insider-one/order-confirmation-service/internal/config"
	"github.com/insider-one/order-confirmation-service/internal/handler"
	"github.com/insider-one/order-confirmation-service/internal/middleware"
	"github.com/insider-one/order-confirmation-service/internal/repository/postgres"
	"github.com/insider-one/order-confirmation-service/internal/repository/redis"
	"github.com/insider-one/order-confirmation-service/internal/service"
)

// @title Order Confirmation Service API
// @version 1.0
// @description Multi-store marketplace order-confirmation dispatch API

// @contact.name API Support
// @contact.email support@insider.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load .env if present, real env wins
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.App.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting order confirmation service",
		"env", cfg.App.Env,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Apply schema migrations
	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)
	settingRepo := postgres.NewSettingRepository(db)
	settingsCache := redis.NewSettingsCache(redisClient, logger)

	// Initialize channels
	emailGateway := channel.NewEmailGateway(cfg.Email, cfg.Store.Name)
	whatsAppClient := channel.NewWhatsAppClient(cfg.WhatsApp, cfg.Store.Name)

	// Initialize services
	builder := service.NewContextBuilder(orderRepo, cfg.Store.DefaultCurrency, logger)
	dispatcher := service.NewDispatcher(emailGateway, whatsAppClient, cfg.Store.DefaultCurrency, logger)
	settingsService := service.NewSettingsService(settingRepo, settingsCache, cfg.Store.SettingsTTL, logger)

	// Initialize dispatch feed
	feed := handler.NewDispatchFeed(logger)
	go feed.Run()
	dispatcher.SetReportBroadcast(feed.BroadcastReport)

	// Initialize metrics
	metrics := handler.NewMetrics()
	dispatcher.SetMetrics(metrics)

	// Initialize handlers
	confirmationHandler := handler.NewConfirmationHandler(builder, dispatcher)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	healthHandler := handler.NewHealthHandler()
	healthHandler.AddChecker("postgres", db)
	healthHandler.AddChecker("redis", redisClient)
	metricsHandler := handler.NewMetricsHandler(metrics)
	wsHandler := handler.NewWebSocketHandler(feed)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Correlation)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, metrics))
	r.Use(chimiddleware.Compress(5))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint
	r.Handle("/metrics", metricsHandler.Handler())

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Dispatch feed
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Trigger endpoints
	r.Route("/test/order-confirmations", func(r chi.Router) {
		confirmationHandler.RegisterRoutes(r)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/settings", func(r chi.Router) {
			settingsHandler.RegisterRoutes(r)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	cancel()

	logger.Info("server stopped")
}
