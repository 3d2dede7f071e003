package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cmm-stock/internal/adapters/cache"
	"cmm-stock/internal/adapters/http/middleware"
	"cmm-stock/internal/adapters/http/routes"
	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/config"
	"cmm-stock/internal/core/services"
	"cmm-stock/internal/pkg/clock"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "cmm-stock/docs" // Swagger docs
)

// @title CMM Stock API
// @version 1.0
// @description Inventory API for goods in (transaksi) and goods out (transaksi keluar).

// @contact.name API Support
// @contact.email support@cmmstock.lifeforcode.net

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist, keeps legacy rows)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	if err := config.NewSeeder(db, cfg.Seed).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed admin user: %v", err)
	}

	clk := clock.New(cfg.Location)

	// List cache
	var listCache services.ListCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.InitRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			log.Printf("⚠️ Redis unavailable at %s, list cache disabled: %v", cfg.Redis.Addr, err)
		} else {
			redisCache := cache.NewRedisCache(client)
			defer redisCache.Close()
			listCache = redisCache
			log.Printf("✅ Redis list cache connected: %s", cfg.Redis.Addr)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Nightly refresh token cleanup
	cronAuth := services.NewAuthService(
		repositories.NewUserRepository(db),
		repositories.NewRefreshTokenRepository(db),
		cfg,
		clk,
	)
	cronService := services.NewCronService(cronAuth, cfg.Location)
	if err := cronService.Register(cfg.Cron.TokenCleanup); err != nil {
		log.Fatalf("❌ Failed to schedule jobs: %v", err)
	}
	cronService.Start()
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CMM Stock API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	routes.Setup(app, routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Cache:    listCache,
		Clock:    clk,
		Registry: registry,
		CheckDB:  config.HealthCheck,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
