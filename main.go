package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"useless-progression/config"
	"useless-progression/gamification"
	"useless-progression/handlers"
	"useless-progression/logging"
	"useless-progression/middleware"
	"useless-progression/models"
	"useless-progression/services"
	"useless-progression/utils"
	"useless-progression/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if !dotenv {
		logger.Info("⚠️  No .env file found, reading environment variables directly")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatalw("failed to connect to database", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.UserProgress{},
		&models.UserAchievement{},
	); err != nil {
		logger.Fatalw("failed to migrate database", "error", err)
	}

	clock := clockwork.NewRealClock()

	var claimLock services.ClaimLock = services.NoopClaimLock{}
	if cfg.RedisURL != "" {
		rdb, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
		claimLock = services.NewRedisClaimLock(rdb, cfg.ClaimLockTTL)
		logger.Infow("✅ Redis claim lock enabled", "ttl", cfg.ClaimLockTTL)
	} else {
		logger.Warn("⚠️  REDIS_URL not set, claims are serialised by the database only")
	}

	progressionService := services.NewProgressionService(db, clock, logger)
	achievementService := services.NewAchievementService(db, progressionService, clock, logger)
	walletService := services.NewWalletService(db, progressionService, achievementService, claimLock, clock, logger)
	hub := services.NewNotificationHub(clock, logger)

	var endpoint gamification.ClaimEndpoint = walletService
	if cfg.ClaimEndpointURL != "" {
		endpoint = services.NewClaimClient(cfg.ClaimEndpointURL, cfg.GameServiceToken, cfg.ClaimEndpointTimeout, logger)
		logger.Infow("✅ Session claims go to remote endpoint", "url", cfg.ClaimEndpointURL)
	}
	sessions := services.NewSessionRegistry(
		services.StoreSnapshotLoader(progressionService, achievementService, walletService),
		endpoint, hub, clock, logger,
	)
	defer sessions.CloseAll()

	publisher := services.NewCatalogPublisher(gamification.DefaultRegistry(), nil, clock, logger)
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2)
		if err != nil {
			logger.Fatalw("failed to initialize R2 client", "error", err)
		}
		publisher.Uploader = r2
	} else {
		logger.Warn("⚠️  R2 not configured, catalog publishing disabled")
	}

	var streamAuth fiber.Handler
	if cfg.AuthServiceURL != "" {
		authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.GameServiceToken, logger)
		streamAuth = middleware.SSEAuthMiddleware(authClient, logger)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken, logger))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupCatalogRoutes(app, gamification.DefaultRegistry(), logger)
	handlers.SetupProgressionRoutes(app, progressionService, achievementService, publisher, hub, sessions, logger)
	handlers.SetupWalletRoutes(app, walletService, sessions, logger)
	handlers.SetupSessionRoutes(app, sessions, achievementService, hub, streamAuth, logger)

	sched, err := workers.Start(ctx, workers.Options{
		StreakReportInterval: cfg.StreakReportInterval,
		SessionEvictInterval: time.Minute,
		SessionIdleTimeout:   cfg.SessionIdleTimeout,
	}, walletService, sessions, clock, logger)
	if err != nil {
		logger.Fatalw("failed to start scheduler", "error", err)
	}

	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Errorw("Server error", "error", err)
			stop()
		}
	}()

	logger.Infow("✅ Server running", "addr", cfg.Addr())
	logger.Infow("✅ CORS configured", "origins", allowedOrigins)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		logger.Warnw("scheduler shutdown failed", "error", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warnw("server shutdown failed", "error", err)
	}
}
