package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"advportal/utils"
	"advportal/worker"
)

// AutomationController exposes the scheduled-automation runner to external
// cron triggers. No request body is required; the batch response reports
// per-record success.
type AutomationController struct {
	Runner *worker.AutomationWorker
	Logger *log.Logger
}

func NewAutomationController(runner *worker.AutomationWorker, logger *log.Logger) *AutomationController {
	return &AutomationController{
		Runner: runner,
		Logger: logger,
	}
}

// ProcessAutomations runs one batch of due automations.
func (ac *AutomationController) ProcessAutomations(c *fiber.Ctx) error {
	report, err := ac.Runner.ProcessDue(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process automations", err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"processed":  report.Processed,
		"successful": report.Successful,
		"results":    report.Results,
	})
}
