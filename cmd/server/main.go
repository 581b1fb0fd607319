package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
	"github.com/jeanyves777/flowsmartly-sub008/internal/handler"
	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/notify"
	"github.com/jeanyves777/flowsmartly-sub008/internal/provider"
	"github.com/jeanyves777/flowsmartly-sub008/internal/repository"
	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	// Create services
	creditSvc := service.NewCreditService(repo)
	userSvc := service.NewUserService(repo, creditSvc, cfg)
	adminSvc := service.NewAdminService(repo, creditSvc)

	// External collaborators
	mediaProvider := provider.NewClient(cfg.Provider.MediaURL, cfg.Provider.SMSGatewayURL)
	notifier := notify.NewWebhook(cfg.Provider.NotifyWebhookURL)

	// Create handlers
	h := handler.New(cfg, userSvc, creditSvc, adminSvc, mediaProvider, notifier)
	adminHandler := handler.NewAdminHandler(adminSvc, creditSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"message": err.Error()},
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Health check
	app.Get("/health", h.Health)

	// Public API (no auth required)
	app.Post("/register", h.Register)

	// Webhooks (signature-authenticated) - billing provider callbacks
	app.Post("/webhook/purchase", h.PurchaseWebhook)

	// API routes with token authentication
	api := app.Group("/api", middleware.Auth(cfg))

	// User
	api.Get("/user/me", h.GetMe)

	// Credits
	api.Get("/credits", h.GetCredits)
	api.Get("/credits/transactions", h.GetCreditTransactions)

	// Creative tools
	api.Post("/creative/design", h.CreateDesign)
	api.Post("/creative/voiceover", h.CreateVoiceover)

	// Automation
	api.Post("/automation/sms", h.SendCampaign)

	// Admin panel routes (requires token auth + admin check)
	admin := app.Group("/api/admin", middleware.Auth(cfg), middleware.AdminAuth(adminSvc))

	// Admin - User management
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:user_id", adminHandler.GetUser)
	admin.Post("/users/:user_id/credits/grant", adminHandler.GrantCredits)
	admin.Get("/users/:user_id/transactions", adminHandler.GetUserTransactions)
	admin.Get("/users/:user_id/ledger/verify", adminHandler.VerifyLedger)

	// Admin - Pricing
	admin.Get("/costs", adminHandler.ListFeatureCosts)
	admin.Post("/costs", adminHandler.SetFeatureCost)
	admin.Delete("/costs/:feature_key", adminHandler.DeleteFeatureCost)

	// Admin - Usage audit
	admin.Get("/usage", adminHandler.ListUsage)

	// Admin - Settings
	admin.Get("/settings/welcome-bonus", adminHandler.GetWelcomeBonus)
	admin.Post("/settings/welcome-bonus", adminHandler.SetWelcomeBonus)
	admin.Get("/settings/referral-bonus", adminHandler.GetReferralBonus)
	admin.Post("/settings/referral-bonus", adminHandler.SetReferralBonus)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
