package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"advportal/config"
	"advportal/middleware"
	"advportal/routes"
	"advportal/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "PORTAL: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Optional infrastructure
	config.ConnectRedis()
	if err := config.InitSentry(); err != nil {
		logger.Printf("Sentry init failed: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize and start the automation runner
	automationWorker := worker.NewAutomationWorker(config.DB,
		log.New(os.Stdout, "AUTOMATION: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go automationWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, automationWorker)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
