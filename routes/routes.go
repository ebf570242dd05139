package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "advportal/controllers"
	"advportal/middleware"
	"advportal/models"
	"advportal/worker"
)

// SetupRoutes wires every portal endpoint: the public webhook surface, the
// automation trigger, and the JWT-protected interactive API.
func SetupRoutes(app *fiber.App, db *gorm.DB, runner *worker.AutomationWorker) {
	webhookLogger := log.New(os.Stdout, "WEBHOOK: ", log.Ldate|log.Ltime|log.Lshortfile)
	apiLogger := log.New(os.Stdout, "API: ", log.Ldate|log.Ltime|log.Lshortfile)

	webhookController := controller.NewWebhookController(db, webhookLogger)
	automationController := controller.NewAutomationController(runner, webhookLogger)
	tenantController := controller.NewTenantController(db, apiLogger)
	leadController := controller.NewLeadController(db, apiLogger)
	stageController := controller.NewStageController(db, apiLogger)
	creditsController := controller.NewCreditsController(apiLogger)
	dashboardController := controller.NewDashboardController(apiLogger)

	// Public webhook surface. Authentication happens inside the handlers
	// (shared secret / agent id), rate limiting per sender IP.
	webhooks := app.Group("/webhooks", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.WebhookRateLimiter(120))

	webhooks.Post("/crm", webhookController.HandleCRMWebhook)
	webhooks.Post("/crm/:action", webhookController.HandleCRMWebhook)
	webhooks.Post("/agent", webhookController.HandleAgentWebhook)
	webhooks.Post("/automations/process", automationController.ProcessAutomations)

	// Public branding lookup used by the portal shell before login
	app.Get("/api/tenant-config", tenantController.GetTenantConfig)

	// Interactive portal API (requires a token from the identity service)
	api := app.Group("/api", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.Protected())

	api.Get("/leads", leadController.GetLeads)
	api.Post("/leads", leadController.CreateLead)
	api.Get("/leads/:id", leadController.GetLead)
	api.Patch("/leads/:id", leadController.UpdateLead)
	api.Delete("/leads/:id", leadController.DeleteLead)
	api.Post("/leads/:id/move", leadController.MoveLeadToStage)
	api.Get("/leads/:id/activities", leadController.GetLeadActivities)

	api.Get("/stages", stageController.GetStages)
	api.Post("/stages", stageController.CreateStage)
	api.Patch("/stages/:id", stageController.UpdateStage)
	api.Delete("/stages/:id", stageController.DeleteStage)
	api.Post("/stages/reorder", stageController.ReorderStages)

	api.Get("/credits", creditsController.GetCredits)
	api.Post("/kpis", dashboardController.GetKPIs)

	// Realtime board updates over websocket
	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			tenant := c.Locals("tenant").(*models.Tenant)
			c.Locals("tenant_id", tenant.ID)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/board", websocket.New(controller.BoardWebSocket()))
}
