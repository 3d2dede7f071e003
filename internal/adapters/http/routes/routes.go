package routes

import (
	"time"

	"cmm-stock/internal/adapters/http/handlers"
	"cmm-stock/internal/adapters/http/middleware"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/config"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/core/services"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the shared resources the routes are built from
type Dependencies struct {
	DB     *gorm.DB
	Config *config.Config
	Cache  services.ListCache
	Clock  clock.Clock
	// Registry receives the service metrics and backs /metrics
	Registry *prometheus.Registry
	// CheckDB backs /health
	CheckDB func() error
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config

	// Initialize repositories
	userRepo := repositories.NewUserRepository(deps.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(deps.DB)
	transactionRepo := repositories.NewTransactionRepository(deps.DB)

	// Initialize services
	recorder := metrics.New(deps.Registry)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg, deps.Clock)
	userService := services.NewUserService(userRepo, refreshTokenRepo, deps.Clock)
	transactionService := services.NewTransactionService(transactionRepo, deps.Cache, cfg.Redis.TTL, deps.Clock, recorder)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, deps.CheckDB)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	inboundHandler := handlers.NewTransactionHandler(transactionService, domain.ClassInbound)
	outboundHandler := handlers.NewTransactionHandler(transactionService, domain.ClassOutbound)

	// Health check & root routes
	if cfg.StaticDir == "" {
		app.Get("/", healthHandler.Root)
	}
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	if cfg.Metrics.Enabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	auth := middleware.AuthMiddleware(authService)

	setupAuthRoutes(app, authHandler)
	setupUserRoutes(app, auth, userHandler)
	setupTransactionRoutes(app.Group("/transaksi", auth, middleware.NoCacheHeaders()), inboundHandler)
	setupTransactionRoutes(app.Group("/transaksi-keluar", auth, middleware.NoCacheHeaders()), outboundHandler)

	// Dashboard build, when deployed next to the API
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir, fiber.Static{
			Compress: true,
			MaxAge:   int((24 * time.Hour).Seconds()),
		})
	}
}

// setupAuthRoutes configures registration and session routes
func setupAuthRoutes(app *fiber.App, h *handlers.AuthHandler) {
	app.Post("/users", middleware.StrictRateLimiter(), h.Register)
	app.Post("/login", middleware.AuthRateLimiter(), middleware.NoCacheHeaders(), h.Login)
	app.Get("/token", middleware.NoCacheHeaders(), h.RefreshToken)
	app.Delete("/logout", h.Logout)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(app *fiber.App, auth fiber.Handler, h *handlers.UserHandler) {
	app.Get("/users", auth, h.ListUsers)
	app.Get("/me", auth, h.Me)
	app.Put("/users/:id/role", auth, middleware.AdminOnly(), h.ChangeRole)
	app.Delete("/users/:id", auth, middleware.AdminOnly(), h.DeleteUser)
}

// setupTransactionRoutes configures the routes of one transaction class.
// Fixed paths are registered before /:id.
func setupTransactionRoutes(r fiber.Router, h *handlers.TransactionHandler) {
	writers := middleware.TransactionWriters()

	r.Get("/", h.List)
	r.Post("/", writers, h.Create)
	r.Get("/latest-id", writers, h.LatestID)
	r.Get("/export", writers, h.Export)
	r.Get("/:id", h.Get)
	r.Put("/:id", writers, h.Update)
	r.Delete("/:id", writers, h.Delete)
}
