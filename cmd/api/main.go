package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ride-token-ledger/config"
	"ride-token-ledger/internal/adapter/chain"
	httpHandler "ride-token-ledger/internal/adapter/http/handler"
	"ride-token-ledger/internal/adapter/mobilemoney"
	pgStorage "ride-token-ledger/internal/adapter/storage/postgres"
	redisStorage "ride-token-ledger/internal/adapter/storage/redis"
	"ride-token-ledger/internal/core/domain"
	"ride-token-ledger/internal/core/ports"
	"ride-token-ledger/internal/service"
	"ride-token-ledger/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Ride Token Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	accountRepo := pgStorage.NewAccountRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)
	tripRepo := pgStorage.NewTripRepo(pool)
	noShowRepo := pgStorage.NewNoShowRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize the on-chain deposit verifier
	evmClient, err := chain.Dial(cfg.Chain.RPCEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to chain RPC")
	}
	defer evmClient.Close()
	depositVerifier := chain.NewVerifier(
		evmClient,
		common.HexToAddress(cfg.Chain.TokenAddress),
		common.HexToAddress(cfg.Chain.TreasuryAddress),
		cfg.Chain.TokenDecimals,
		log,
	)
	log.Info().Str("token", cfg.Chain.TokenAddress).Msg("Chain verifier ready")

	// Mobile-money confirmation code validator
	mmValidator := mobilemoney.NewValidator(log)

	// Post-commit notification publisher (Redis pub/sub)
	notifier := redisStorage.NewNotifier(rdb, log)

	// Initialize core services
	hashSvc := service.NewArgon2HashService(service.Argon2Params{
		Time:      cfg.Hash.Time,
		MemoryKiB: cfg.Hash.MemoryKiB,
		Threads:   cfg.Hash.Threads,
	})
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	webhookVerifier := service.NewWebhookVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)

	rates := domain.RateCard{
		FiatTokenCost:    cfg.Rates.FiatTokenCost,
		CardTokenCost:    cfg.Rates.CardTokenCost,
		DepositFiatRate:  cfg.Rates.DepositFiatRateAmount(),
		DepositTokenCost: cfg.Rates.DepositTokenCostAmount(),
	}

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, accountRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(accountRepo, log)
	creditSvc := service.NewCreditService(
		accountRepo,
		eventRepo,
		depositVerifier,
		mmValidator,
		notifier,
		transactor,
		rates,
		cfg.Chain.MinConfirmations,
		cfg.Chain.MinDepositAmount(),
		log,
	)
	tripSvc := service.NewTripService(tripRepo, accountRepo, notifier, transactor, log)
	noShowSvc := service.NewNoShowService(noShowRepo, accountRepo, tripRepo, notifier, transactor, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		WalletSvc:       walletSvc,
		CreditSvc:       creditSvc,
		TripSvc:         tripSvc,
		NoShowSvc:       noShowSvc,
		TokenSvc:        tokenSvc,
		WebhookVerifier: webhookVerifier,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
