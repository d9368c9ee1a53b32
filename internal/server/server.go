// Package server contains HTTP handlers for the storefront API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	productRepo    repository.ProductRepository
	categoryRepo   repository.CategoryRepository
	cartRepo       repository.CartRepository
	orderRepo      repository.OrderRepository
	chatRepo       repository.ChatRepository
	accountRepo    repository.AccountRepository
	eventRepo      repository.EventRepository
	chatService    *service.ChatService
	orderService   *service.OrderService
	catalogService *service.CatalogService
	accountService *service.AccountService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("atelier-api"),
		userRepo:       repository.NewUserRepository(db),
		productRepo:    repository.NewProductRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		cartRepo:       repository.NewCartRepository(db),
		orderRepo:      repository.NewOrderRepository(db),
		chatRepo:       repository.NewChatRepository(db),
		accountRepo:    repository.NewAccountRepository(db),
		eventRepo:      repository.NewEventRepository(db),
	}

	server.chatService = service.NewChatService(server.chatRepo)
	server.orderService = service.NewOrderService(db, server.cartRepo, server.orderRepo, server.chatService)
	server.catalogService = service.NewCatalogService(server.productRepo, server.categoryRepo)
	server.accountService = service.NewAccountService(server.userRepo, server.accountRepo, server.orderRepo, server.chatRepo)

	return server, nil
}

// SetupMiddleware installs the global middleware chain. Order matters:
// recover first, then request identity and context propagation, then the
// observers, and the cross-origin/limiter pair last. CORS runs before the
// limiter so browsers still get CORS headers on throttled responses.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Coarse per-IP limit as a backstop; abuse-prone routes add their own
	// Redis-backed limiters in SetupRoutes. Preflights are never throttled.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Atelier Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Public catalog routes. Specific /:id siblings before the generic /:id route.
	products := api.Group("/products")
	products.Get("/", s.GetProducts)
	products.Get("/categories", s.GetCategories)
	products.Get("/curated", s.GetCurated)
	products.Get("/:id", s.GetProduct)

	// Analytics ingest (optional auth)
	api.Post("/track", s.Track)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Cart
	protected.Get("/cart", s.GetCart)
	protected.Put("/cart", s.PutCart)

	// Orders
	orders := protected.Group("/orders")
	orders.Post("/checkout", s.Checkout)
	orders.Get("/", s.GetOrders)

	// Chat threads
	threads := protected.Group("/chat/threads")
	threads.Get("/", s.GetThreads)
	threads.Post("/:id/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.SendThreadMessage)
	threads.Post("/:id/read", s.MarkThreadRead)
	threads.Get("/:id", s.GetThread)

	// Account
	account := protected.Group("/account")
	account.Get("/me", s.GetAccountOverview)
	account.Put("/me", s.UpdateAccountProfile)
	account.Post("/change-password", s.ChangePassword)
	account.Get("/orders", s.GetAccountOrders)
	account.Get("/orders/:id", s.GetAccountOrder)
	account.Get("/addresses", s.GetAddresses)
	account.Post("/addresses", s.CreateAddress)
	account.Put("/addresses/:id", s.UpdateAddress)
	account.Delete("/addresses/:id", s.DeleteAddress)
	account.Get("/payment-methods", s.GetPaymentMethods)
	account.Post("/payment-methods", s.CreatePaymentMethod)
	account.Delete("/payment-methods/:id", s.DeletePaymentMethod)
	account.Get("/preferences", s.GetPreferences)
	account.Put("/preferences", s.UpdatePreferences)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/metrics", s.GetAdminMetrics)
	adminChat := admin.Group("/chat/threads")
	adminChat.Get("/", s.GetAdminThreads)
	adminChat.Post("/:id/messages", s.SendAdminThreadMessage)
	adminChat.Post("/:id/read", s.MarkAdminThreadRead)
	adminChat.Get("/:id", s.GetAdminThread)
	admin.Get("/orders", s.GetAdminOrders)
	admin.Put("/orders/:id/status", s.UpdateAdminOrderStatus)
	admin.Post("/products", s.CreateAdminProduct)
	admin.Put("/products/:id", s.UpdateAdminProduct)
	admin.Delete("/products/:id", s.DeleteAdminProduct)
	admin.Post("/categories", s.CreateAdminCategory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports dependency health. Only a dead database fails the
// probe; the API runs degraded but correct without Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.isAdmin(c, userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// bearerToken pulls the raw token out of the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// verifyToken parses tokenString against the configured secret, accepting
// only HMAC signatures, and returns its claims.
func (s *Server) verifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

// subjectUserID reads the numeric user ID out of the sub claim.
func subjectUserID(claims jwt.MapClaims) (uint, bool) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(userID), true
}

// AuthRequired returns the authentication middleware. Beyond the signature
// it checks issuer, audience and the Redis revocation list.
func (s *Server) AuthRequired() fiber.Handler {
	unauthorized := func(c *fiber.Ctx, msg string) error {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(msg))
	}

	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return unauthorized(c, "Authorization required")
		}

		claims, err := s.verifyToken(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		if issuer, ok := claims["iss"].(string); !ok || issuer != "atelier-api" {
			return unauthorized(c, "Invalid token issuer")
		}
		if audience, ok := claims["aud"].(string); !ok || audience != "atelier-client" {
			return unauthorized(c, "Invalid token audience")
		}

		userID, ok := subjectUserID(claims)
		if !ok {
			return unauthorized(c, "Invalid subject claim")
		}

		// Revocation check is best-effort: without Redis tokens simply
		// expire on schedule.
		if jti, ok := claims["jti"].(string); ok && jti != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
			if err == nil && revoked > 0 {
				return unauthorized(c, "Token has been revoked")
			}
		}

		c.Locals("userID", userID)
		// Mirror into the request context for the logger and services.
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))

		return c.Next()
	}
}

// optionalUserID identifies the caller when a valid token is present but
// never rejects the request. Used by the analytics ingest route.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return 0, false
	}
	claims, err := s.verifyToken(tokenString)
	if err != nil {
		return 0, false
	}
	return subjectUserID(claims)
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Atelier Storefront API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
