package main

import (
	"context"
	stdlog "log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"casino-backend/internal/config"
	"casino-backend/internal/handlers"
	"casino-backend/internal/ledger"
	"casino-backend/internal/logger"
	"casino-backend/internal/middleware"
	"casino-backend/internal/promo"
	"casino-backend/internal/seeds"
	"casino-backend/internal/services"
	"casino-backend/internal/settlement"
	"casino-backend/internal/wallet"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: cfg.Env != "production",
	})

	ctx := context.Background()

	// Stores: PostgreSQL when configured, otherwise in-memory. The memory
	// stores hold the same invariants and make local development and CI
	// work without infrastructure.
	var (
		ledgerStore     ledger.Store
		seedStore       seeds.Store
		roundStore      settlement.RoundStore
		claimStore      promo.ClaimStore
		withdrawalStore wallet.WithdrawalStore
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create postgres pool")
		}
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()

		ledgerStore = ledger.NewPGStore(pool)
		seedStore = seeds.NewPGStore(pool)
		roundStore = settlement.NewPGRoundStore(pool)
		claimStore = promo.NewPGClaimStore(pool)
		withdrawalStore = wallet.NewPGWithdrawalStore(pool)
		log.Info().Msg("using postgres stores")
	} else {
		ledgerStore = ledger.NewMemStore()
		seedStore = seeds.NewMemStore()
		roundStore = settlement.NewMemRoundStore()
		claimStore = promo.NewMemClaimStore(promo.DefaultOffers)
		withdrawalStore = wallet.NewMemWithdrawalStore()
		log.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, sessions and rate limits disabled")
			redisService = nil
		} else {
			defer redisService.Close()
		}
	}

	jwtService := services.NewJWTService(cfg)

	applier := promo.NewApplier(ledgerStore, claimStore, cfg.PromoWageringMultiplier, log)
	walletService := wallet.NewService(ledgerStore, withdrawalStore, applier, log)
	orchestrator := settlement.NewOrchestrator(ledgerStore, roundStore, seedStore,
		cfg.MinBetCents, cfg.MaxBetCents, log)

	wsHandler := handlers.NewWebSocketHandler(walletService, log)
	orchestrator.SetBroadcaster(wsHandler)

	authHandler := handlers.NewAuthHandler(redisService, jwtService, log)
	userHandler := handlers.NewUserHandler(redisService, walletService)
	gameHandler := handlers.NewGameHandler(orchestrator, seedStore, redisService, log)
	walletHandler := handlers.NewWalletHandler(walletService)
	promoHandler := handlers.NewPromoHandler(applier, claimStore)
	webhookHandler := handlers.NewWebhookHandler(walletService, cfg.WebhookSecret, log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)
	router.POST("/webhooks/payments", webhookHandler.HandlePayment)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/bet", gameHandler.PlaceBet)
			games.GET("/history", gameHandler.GetHistory)
			games.GET("/recent", gameHandler.GetRecentRounds)
			games.GET("/rounds/:id", gameHandler.GetRound)

			games.GET("/seed", gameHandler.GetSeed)
			games.POST("/seed/client", gameHandler.SetClientSeed)
			games.POST("/seed/rotate", gameHandler.RotateSeed)
			games.POST("/verify", gameHandler.VerifyRound)
		}

		walletGroup := protected.Group("/wallet")
		{
			walletGroup.GET("/balance", walletHandler.GetBalance)
			walletGroup.GET("/entries", walletHandler.GetEntries)
			walletGroup.POST("/withdrawals", walletHandler.RequestWithdrawal)
			walletGroup.GET("/withdrawals", walletHandler.ListWithdrawals)
		}

		promos := protected.Group("/promos")
		{
			promos.GET("/offers", promoHandler.ListOffers)
			promos.GET("/claim", promoHandler.GetActiveClaim)
			promos.POST("/redeem", promoHandler.Redeem)
		}
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
