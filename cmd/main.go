package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "cosmosdb-wrapper/internal/docstore/adapter/http"
	"cosmosdb-wrapper/internal/docstore/config"
	"cosmosdb-wrapper/internal/di"
	"cosmosdb-wrapper/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	appLogger := logger.NewLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger.Info("Application configuration loaded successfully", zap.String("backend", cfg.Backend))

	container := di.NewContainer(appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Error("Failed to close container", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := container.InitializeDocstore(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize docstore module: %v", err)
	}
	appLogger.Info("Docstore module initialized successfully")

	app := fiber.New(fiber.Config{
		AppName:      "Cosmos DB Wrapper API v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("HTTP Error", zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   "http_error",
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(httpadapter.RequestID())
	app.Use(httpadapter.AccessLog(appLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			appLogger.Error("Health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"message": "Document store is unreachable",
			})
		}

		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"backend":   cfg.Backend,
			"timestamp": time.Now().UTC(),
		})
	})
	httpadapter.RegisterMetrics(app, container.Registry)

	container.GetDocstoreModule().RegisterRoutes(app)

	serverAddr := cfg.Server.Addr()
	appLogger.Info("Starting HTTP server", zap.String("addr", serverAddr))

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			return
		}
	case sig := <-quit:
		appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("Server forced to shutdown", zap.Error(err))
		}

		appLogger.Info("HTTP server stopped")
	}

	appLogger.Info("Application stopped gracefully.")
}
