package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mission-engine/handlers"
	"mission-engine/middleware"
	"mission-engine/models"
	"mission-engine/services"
	"mission-engine/utils"
	"mission-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Mission{},
		&models.QuizChoice{},
		&models.Profile{},
		&models.SolvedMission{},
		&models.InventoryEntry{},
		&models.MissionLockout{},
		&models.PersonalBest{},
		&models.MarketItem{},
		&models.CompletionAudit{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	catalogService := services.NewCatalogService(db)
	profileService := services.NewProfileService(db)
	ledgerService := services.NewLedgerService(db)
	placementService := services.NewPlacementService(db, ledgerService)
	verificationService := services.NewVerificationService(db, ledgerService)
	marketService := services.NewMarketService(db)
	leaderboardService := services.NewLeaderboardService(db)

	if err := marketService.SeedDefaults(); err != nil {
		log.Fatal("failed to seed market catalog:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mission definitions are authored in the external content service; the
	// worker keeps the local mirror current when one is configured.
	if os.Getenv("CONTENT_SERVICE_URL") != "" {
		catalogSyncClient := workers.NewCatalogSyncClient(db)
		go workers.PollCatalog(ctx, catalogSyncClient, 30*time.Second)
		log.Println("✅ Mission catalog polling running (every 30s)")
	} else {
		log.Println("⚠️  CONTENT_SERVICE_URL not set — catalog sync disabled, serving local missions only")
	}

	catalogService.StartSchedulers(placementService)

	handlers.SetupMissionRoutes(app, catalogService, verificationService, placementService, ledgerService)
	handlers.SetupMarketRoutes(app, marketService)
	handlers.SetupProgressionRoutes(app, profileService, leaderboardService, ledgerService)

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
}
