package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lingoquest/cache"
	"lingoquest/config"
	"lingoquest/database"
	"lingoquest/events"
	"lingoquest/handlers"
	"lingoquest/handlers/admin"
	applog "lingoquest/logger"
	"lingoquest/middleware"
	"lingoquest/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// Validate critical settings
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if cfg.IsProduction() && (cfg.App.CORSOrigins == "" || cfg.App.CORSOrigins == "http://localhost:3000") {
		log.Println("WARNING: CORS_ORIGINS not properly configured for production")
	}

	zl, err := applog.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: build logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database
	if err := database.InitDB(cfg.Database, gormLogLevel(cfg.App.LogLevel)); err != nil {
		zl.Fatal("Database initialization failed", zap.Error(err))
	}
	defer database.CloseDB()
	db := database.GetDB()

	cal, err := services.NewCalendar(cfg.Challenge.Timezone)
	if err != nil {
		zl.Fatal("Invalid challenge timezone", zap.Error(err))
	}

	policy := services.Policy{
		MaxAttempts:  cfg.Challenge.MaxAttempts,
		PassingScore: cfg.Challenge.PassingScore,
		Tiers: services.TierPolicy{
			IntermediateLevel: cfg.Challenge.IntermediateLevel,
			AdvancedLevel:     cfg.Challenge.AdvancedLevel,
		},
		LeaderboardTTL: cfg.Challenge.LeaderboardTTL,
	}

	// Leaderboard snapshots: Redis when configured, process memory otherwise
	var snapshots cache.Cache = cache.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			zl.Warn("Redis unavailable, using in-memory leaderboard cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			snapshots = rc
			defer rc.Close()
		}
		cancel()
	}

	// Domain events: in-process hub for live sockets, NATS when configured
	hub := events.NewHub()
	publishers := events.Multi{hub}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL, zl.Named("nats"))
		if err != nil {
			zl.Warn("NATS unavailable, events stay in-process", zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			publishers = append(publishers, np)
			defer np.Close()
		}
	}

	svc := services.NewChallenges(db, cal, policy, snapshots, publishers, zl.Named("challenges"))

	var scheduler *services.PrizeScheduler
	if cfg.Challenge.PrizeSchedule != "" {
		scheduler, err = services.NewPrizeScheduler(svc.Prizes, cal, cfg.Challenge.PrizeSchedule, zl.Named("scheduler"))
		if err != nil {
			zl.Fatal("Invalid PRIZE_SCHEDULE", zap.Error(err))
		}
		scheduler.Start()
	}

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handlers.InitChallengeHandlers(svc, hub, zl.Named("http"))
	handlers.InitAuthHandlers(db, auth)
	admin.Init(db, svc, auth, zl.Named("admin"))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler(cfg.IsProduction()),
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency}) ${locals:requestId}\n",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowCredentials: true,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Apply rate limiting to all routes
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowMs/1000)
		limiter.StartCleanup(ctx)
		app.Use(limiter.Middleware())
	}

	handlers.RegisterRoutes(app, auth)
	admin.RegisterRoutes(app, auth)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().Unix(),
			"today":     cal.Today(),
			"version":   "1.0.0",
		})
	})

	go func() {
		<-ctx.Done()
		zl.Info("Shutting down")
		if scheduler != nil {
			scheduler.Stop()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Warn("HTTP shutdown", zap.Error(err))
		}
	}()

	log.Printf("🚀 HTTP server starting on port %s", cfg.App.Port)
	log.Printf("📊 Environment: %s", cfg.App.Env)
	log.Printf("🗓️  Challenge zone: %s (today %s)", cfg.Challenge.Timezone, cal.Today())
	log.Printf("🏆 Prize schedule: %q", cfg.Challenge.PrizeSchedule)

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		zl.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

func customErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		// Don't expose internal errors in production
		if production && code == 500 {
			message = "An error occurred. Please try again later."
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
