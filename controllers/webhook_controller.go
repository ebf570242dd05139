package controller

import (
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"advportal/models"
	"advportal/utils"
)

// WebhookController is the ingestion gateway: it authenticates untrusted
// external payloads, normalizes them into lead records, and applies
// idempotent-per-request create/update semantics.
type WebhookController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewWebhookController(db *gorm.DB, logger *log.Logger) *WebhookController {
	return &WebhookController{
		DB:     db,
		Logger: logger,
	}
}

// crmLeadPayload is the create body of the generic CRM webhook.
type crmLeadPayload struct {
	Name             string                 `json:"name" validate:"required,min=1"`
	Email            string                 `json:"email"`
	Phone            string                 `json:"phone"`
	Source           string                 `json:"source"`
	OpportunityValue float64                `json:"opportunity_value" validate:"gte=0"`
	Tags             []string               `json:"tags"`
	Observations     string                 `json:"observations"`
	CustomFields     map[string]interface{} `json:"custom_fields"`
	MeetingScheduled bool                   `json:"meeting_scheduled"`
	NextContact      *string                `json:"next_contact"`
}

// crmUpdatePayload is the update body, dispatched on the presence of lead_id.
type crmUpdatePayload struct {
	LeadID  string            `json:"lead_id"`
	Updates *models.LeadPatch `json:"updates"`
}

// HandleCRMWebhook accepts the secret-authenticated CRM webhook. A body
// carrying lead_id is an update, anything else is a create. There is no
// dedup key: retried deliveries create duplicate leads, deduplication is the
// sender's responsibility.
func (wc *WebhookController) HandleCRMWebhook(c *fiber.Ctx) error {
	secret := c.Get("x-webhook-secret")
	if secret == "" {
		secret = c.Query("secret")
	}
	if secret == "" {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing webhook secret", nil)
	}

	tenant, err := models.FindTenantBySecret(wc.DB, secret)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid webhook secret", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve tenant", err)
	}

	// Dispatch on lead_id before binding the full shape
	var dispatch struct {
		LeadID string `json:"lead_id"`
	}
	if err := c.BodyParser(&dispatch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	logrus.WithFields(logrus.Fields{
		"tenant": tenant.Slug,
		"update": dispatch.LeadID != "",
	}).Info("crm webhook received")

	if dispatch.LeadID != "" {
		return wc.updateLeadFromWebhook(c, tenant)
	}
	return wc.createLeadFromWebhook(c, tenant)
}

func (wc *WebhookController) createLeadFromWebhook(c *fiber.Ctx, tenant *models.Tenant) error {
	var payload crmLeadPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if payload.Name == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "name is required", nil)
	}
	if err := utils.ValidateStruct(payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	patch := models.LeadPatch{
		Name:  &payload.Name,
		Email: utils.Pointer(payload.Email),
		Phone: utils.Pointer(payload.Phone),
	}
	patch.Normalize()

	landing, err := models.LandingStage(wc.DB, tenant.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve landing stage", err)
	}

	lead := models.Lead{
		TenantID:         tenant.ID,
		Name:             *patch.Name,
		Phone:            payload.Phone,
		Source:           payload.Source,
		Origin:           models.OriginWebhook,
		Tags:             payload.Tags,
		Observations:     payload.Observations,
		CustomFields:     payload.CustomFields,
		OpportunityValue: payload.OpportunityValue,
		MeetingScheduled: payload.MeetingScheduled,
	}
	if patch.Email != nil {
		lead.Email = *patch.Email
	}
	if landing != nil {
		lead.StageID = &landing.ID
	}
	if payload.Source == "" {
		lead.Source = models.OriginWebhook
	}
	if payload.NextContact != nil {
		if ts, err := parseTimestamp(*payload.NextContact); err == nil {
			lead.NextContact = &ts
		}
	}

	if err := wc.DB.Create(&lead).Error; err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	models.TryRecordActivity(wc.DB, lead.ID, nil, models.ActivityWebhookCreate,
		"Lead created via webhook", map[string]interface{}{
			"source": lead.Source,
		})

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_created",
		LeadID: lead.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"lead_id": lead.ID,
		"message": "Lead created",
	})
}

func (wc *WebhookController) updateLeadFromWebhook(c *fiber.Ctx, tenant *models.Tenant) error {
	var payload crmUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if payload.LeadID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "lead_id is required for updates", nil)
	}
	if payload.Updates == nil {
		payload.Updates = &models.LeadPatch{}
	}
	if err := utils.ValidateStruct(payload.Updates); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	payload.Updates.Normalize()

	lead, err := models.ApplyLeadPatch(wc.DB, tenant.ID, payload.LeadID, payload.Updates)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found or access denied", nil)
		}
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	models.TryRecordActivity(wc.DB, lead.ID, nil, models.ActivityWebhookUpdate,
		"Lead updated via webhook", map[string]interface{}{
			"updates": payload.Updates.FieldNames(),
		})

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_updated",
		LeadID: lead.ID,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Lead updated",
	})
}
