package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/api"
	"github.com/guardchat/orchestrator/config"
	"github.com/guardchat/orchestrator/guardrails"
	"github.com/guardchat/orchestrator/llm"
	"github.com/guardchat/orchestrator/policy"
	"github.com/guardchat/orchestrator/service"
	"github.com/guardchat/orchestrator/store"
	"github.com/guardchat/orchestrator/telemetry"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting chat orchestrator",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("classifier_url", cfg.ClassifierURL),
		zap.String("model_url", cfg.ModelURL),
	)

	// Initialize tracing
	tp := telemetry.NewTracerProvider()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()
	tracer := tp.Tracer(telemetry.ScopeName)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	// Initialize classifier client
	guard := guardrails.NewClient(cfg.ClassifierURL, cfg.GuardrailID, cfg.GuardrailVersion, cfg.ClassifierTimeout, tracer)

	// Initialize model client
	invoker := llm.NewClient(cfg.ModelURL, cfg.ModelAPIKey, cfg.ModelTimeout, tracer)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Initialize service
	svc := service.New(db, guard, invoker, policyEngine, tracer, logger)

	// Initialize handler
	h := api.NewHandler(svc, db, logger)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("chat API started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down chat orchestrator")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("chat orchestrator stopped")
}
