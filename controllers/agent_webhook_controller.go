package controller

import (
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"advportal/models"
	"advportal/utils"
)

// agentWebhookPayload is the agent-originated ingestion shape. The source
// system sends either English or Portuguese field names for name, phone and
// message; the English convention wins when both are present.
type agentWebhookPayload struct {
	AgentID       string `json:"agent_id"`
	InteractionID string `json:"interaction_id"`

	Name     string `json:"name"`
	Nome     string `json:"nome"`
	Phone    string `json:"phone"`
	Telefone string `json:"telefone"`
	Message  string `json:"message"`
	Mensagem string `json:"mensagem"`

	Email            string                 `json:"email"`
	Source           string                 `json:"source"`
	OpportunityValue float64                `json:"opportunity_value" validate:"gte=0"`
	Tags             []string               `json:"tags"`
	CustomFields     map[string]interface{} `json:"custom_fields"`
}

// firstNonEmpty implements the primary-then-fallback field precedence.
func firstNonEmpty(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return strings.TrimSpace(primary)
	}
	return strings.TrimSpace(fallback)
}

// HandleAgentWebhook ingests leads pushed by the external conversational
// agent. Authentication is the agent id itself; an unknown id is a 404 so an
// unregistered agent learns nothing about existing tenants.
func (wc *WebhookController) HandleAgentWebhook(c *fiber.Ctx) error {
	var payload agentWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if payload.AgentID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "agent_id is required", nil)
	}
	if err := utils.ValidateStruct(payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	tenant, err := models.FindTenantByAgentID(wc.DB, payload.AgentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Agent not registered", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve tenant", err)
	}

	name := firstNonEmpty(payload.Name, payload.Nome)
	if name == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "name is required", nil)
	}

	patch := models.LeadPatch{
		Email: utils.Pointer(payload.Email),
	}
	patch.Normalize()

	landing, err := models.LandingStage(wc.DB, tenant.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve landing stage", err)
	}

	lead := models.Lead{
		TenantID:         tenant.ID,
		Name:             name,
		Phone:            firstNonEmpty(payload.Phone, payload.Telefone),
		Source:           payload.Source,
		Origin:           models.OriginAgent,
		HandledByAgent:   true,
		Tags:             payload.Tags,
		Observations:     firstNonEmpty(payload.Message, payload.Mensagem),
		CustomFields:     payload.CustomFields,
		OpportunityValue: payload.OpportunityValue,
	}
	if patch.Email != nil {
		lead.Email = *patch.Email
	}
	if landing != nil {
		lead.StageID = &landing.ID
	}
	if payload.InteractionID != "" {
		lead.InteractionID = &payload.InteractionID
	}

	if err := wc.DB.Create(&lead).Error; err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	logrus.WithFields(logrus.Fields{
		"tenant":  tenant.Slug,
		"lead_id": lead.ID,
	}).Info("agent webhook lead ingested")

	models.TryRecordActivity(wc.DB, lead.ID, nil, models.ActivityWebhookCreate,
		"Lead received via SDR agent", map[string]interface{}{
			"interaction_id": payload.InteractionID,
			"agent_id":       payload.AgentID,
		})

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_created",
		LeadID: lead.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"lead_id": lead.ID,
		"message": "Lead created successfully",
	})
}
