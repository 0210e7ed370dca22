package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"learner-gamification-service/handlers"
	"learner-gamification-service/middleware"
	"learner-gamification-service/models"
	"learner-gamification-service/services"
	"learner-gamification-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — JSON events only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.LearnerProgress{},
		&models.XPTransaction{},
		&models.LearnerBadge{},
		&models.Challenge{},
		&models.ChallengeProgress{},
		&models.CelebrationEvent{},
		&models.LearnerMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Configuration tables are part of the deploy — a malformed table must
	// never come up serving traffic.
	if err := services.DefaultRewardTable.Validate(); err != nil {
		log.Fatal("invalid reward table:", err)
	}
	if err := services.DefaultLevelTable.Validate(); err != nil {
		log.Fatal("invalid level table:", err)
	}
	if err := models.ValidateBadgeCatalog(models.BadgeCatalog); err != nil {
		log.Fatal("invalid badge catalog:", err)
	}

	// Optional redis snapshot cache for leaderboards.
	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb = redis.NewClient(opts)
		log.Println("✅ Redis leaderboard cache enabled")
	} else {
		log.Println("⚠️  REDIS_URL not set — leaderboards served from live queries")
	}

	celebrationService := services.NewCelebrationService(db)
	badgeService := services.NewBadgeService(db, models.BadgeCatalog, celebrationService)
	challengeService := services.NewChallengeService(db, services.DefaultRewardTable, celebrationService)
	progressionService := services.NewProgressionService(
		db, services.DefaultRewardTable, services.DefaultLevelTable,
		badgeService, challengeService, celebrationService,
	)
	leaderboardService := services.NewLeaderboardService(db, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Learner identity mirror sync (display names, avatars, cohort flags).
	profileSyncURL := os.Getenv("PROFILE_SYNC_URL")
	serviceToken := os.Getenv("LEARNER_SERVICE_TOKEN")
	if profileSyncURL != "" {
		syncWorker := workers.NewLearnerSyncWorker(db, profileSyncURL, "/api/v1/public/learners", serviceToken)
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SYNC_URL not set — learner mirror sync disabled (leaderboard names and cohort badges will lag)")
	}

	refreshEvery := 5 * time.Minute
	if raw := os.Getenv("LEADERBOARD_REFRESH_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			refreshEvery = parsed
		} else {
			log.Printf("⚠️  Invalid LEADERBOARD_REFRESH_INTERVAL %q, using %s", raw, refreshEvery)
		}
	}
	sched, err := leaderboardService.StartRolloverScheduler(refreshEvery)
	if err != nil {
		log.Fatal("failed to start rollover scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupGamificationRoutes(app, progressionService, badgeService, challengeService, leaderboardService, celebrationService)
	handlers.SetupAdminRoutes(app, progressionService, challengeService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
