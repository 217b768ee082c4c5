package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"fixmyspine_backend/internal/controller"
	"fixmyspine_backend/internal/middleware"
	"fixmyspine_backend/internal/model"
	"fixmyspine_backend/pkg/config"
	"fixmyspine_backend/pkg/cron"
	"fixmyspine_backend/pkg/database"
	"fixmyspine_backend/pkg/email"
	"fixmyspine_backend/pkg/payment"
	"fixmyspine_backend/pkg/subscription"
)

func setupRoutes(app *fiber.App, cfg *config.Config, engine *subscription.Engine, gateway *payment.Gateway) {
	api := app.Group("/api")

	// Stripe webhook
	api.Post("/webhook", controller.HandleStripeWebhook(engine, cfg.Stripe.WebhookSecret))

	// Subscription routes
	subscriptions := api.Group("/subscriptions")

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/create-checkout-session", controller.CreateCheckoutSession(gateway, cfg.Server.BaseURL))
	subProtected.Post("/cancel-subscription", controller.CancelSubscription(gateway))
	subProtected.Get("/status/:business_id", middleware.CheckBusinessOwnership(), controller.GetSubscriptionStatus)
	subProtected.Get("/portal", controller.GetBillingPortal(gateway, cfg.Server.BaseURL))

	// Stripe checkout süreç sonuçları
	subscriptions.Get("/payment-success", controller.HandleSubscriptionSuccess(gateway))
	subscriptions.Get("/payment-cancelled", controller.HandleSubscriptionCancel)
}

func main() {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Business{},
		&model.SubscriptionEvent{},
		&model.NotificationRecord{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	sender, err := email.NewService(cfg.Email.ResendAPIKey, cfg.Email.From)
	if err != nil {
		log.Fatal("Could not initialize email service:", err)
	}

	gateway := payment.NewGateway(cfg.Stripe.SecretKey, cfg.Stripe.AnnualPriceID, 10*time.Second)

	ledger := subscription.NewGormLedger(database.GetDB())
	engine := subscription.NewEngine(ledger, gateway, sender)
	sweeper := subscription.NewSweeper(ledger, engine)
	notifier := subscription.NewNotifier(ledger, sender)
	health := subscription.NewHealthCheck(ledger)

	scheduler, err := cron.NewScheduler(cfg.Scheduler.Timezone, sweeper, notifier, health)
	if err != nil {
		log.Fatal("Could not initialize scheduler:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app, cfg, engine, gateway)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		app.Shutdown()
	}()

	log.Printf("Server is running on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
