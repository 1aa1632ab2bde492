package handler

import (
	"ride-token-ledger/internal/adapter/http/middleware"
	redisStore "ride-token-ledger/internal/adapter/storage/redis"
	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	WalletSvc       ports.WalletService
	CreditSvc       ports.CreditService
	TripSvc         ports.TripService
	NoShowSvc       ports.NoShowService
	TokenSvc        ports.TokenService
	WebhookVerifier ports.WebhookVerifier
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	creditHandler := NewCreditHandler(deps.CreditSvc, deps.WebhookVerifier, deps.Logger)

	// Card provider webhook: authenticated by signature, not by JWT.
	v1.POST("/webhooks/card", creditHandler.CardWebhook)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	credits := v1.Group("/credits", jwtAuth)
	{
		credits.POST("/purchase", rl("credits"), creditHandler.Purchase)
		credits.POST("/deposit", rl("credits"), creditHandler.Deposit)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("reads"), walletHandler.GetBalance)
		wallet.GET("/history", rl("reads"), walletHandler.History)
	}

	tripHandler := NewTripHandler(deps.TripSvc)
	trips := v1.Group("/trips", jwtAuth)
	{
		trips.POST("", rl("trips"), middleware.RequireRole(domain.RoleRider), tripHandler.Create)
		trips.GET("", rl("reads"), tripHandler.List)
		trips.POST("/:id/accept", rl("trips"), middleware.RequireRole(domain.RoleDriver), tripHandler.Accept)
		trips.POST("/:id/start", rl("trips"), middleware.RequireRole(domain.RoleDriver), tripHandler.Start)
		trips.PUT("/:id/price", rl("trips"), tripHandler.ProposePrice)
	}

	noShowHandler := NewNoShowHandler(deps.NoShowSvc)
	noShow := v1.Group("/no-show", jwtAuth)
	{
		noShow.POST("/report", rl("noshow"), noShowHandler.Report)
		noShow.GET("/restriction", rl("reads"), noShowHandler.Restriction)
		noShow.GET("/reports", rl("reads"), noShowHandler.Reports)
		noShow.GET("/penalties", rl("reads"), noShowHandler.Penalties)
	}

	return r
}
