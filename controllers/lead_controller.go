package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"advportal/models"
	"advportal/utils"
)

// LeadController serves the interactive Kanban commands. Every operation is
// scoped to the tenant resolved by the auth middleware.
type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
	}
}

// CreateLead creates a lead for the current tenant.
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	userID := c.Locals("user_id").(string)

	var input struct {
		Name             string   `json:"name" validate:"required,min=1"`
		Email            string   `json:"email"`
		Phone            string   `json:"phone"`
		StageID          *string  `json:"stage_id"`
		Source           string   `json:"source"`
		Tags             []string `json:"tags"`
		Observations     string   `json:"observations"`
		OpportunityValue float64  `json:"opportunity_value" validate:"gte=0"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	patch := models.LeadPatch{
		Name:  &input.Name,
		Email: utils.Pointer(input.Email),
	}
	patch.Normalize()

	stageID := input.StageID
	if stageID == nil {
		landing, err := models.LandingStage(lc.DB, tenant.ID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve landing stage", err)
		}
		if landing != nil {
			stageID = &landing.ID
		}
	} else {
		// A caller-picked stage must belong to the tenant
		var stage models.PipelineStage
		if err := lc.DB.Where("id = ? AND tenant_id = ?", *stageID, tenant.ID).First(&stage).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
	}

	lead := models.Lead{
		TenantID:         tenant.ID,
		StageID:          stageID,
		Name:             *patch.Name,
		Phone:            input.Phone,
		Source:           input.Source,
		Origin:           models.OriginManual,
		Tags:             input.Tags,
		Observations:     input.Observations,
		OpportunityValue: input.OpportunityValue,
	}
	if patch.Email != nil {
		lead.Email = *patch.Email
	}

	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	models.TryRecordActivity(lc.DB, lead.ID, &userID, models.ActivityCreation,
		"Lead created", map[string]interface{}{
			"origin": lead.Origin,
		})

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_created",
		LeadID: lead.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads returns the tenant's leads, newest first.
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	var leads []models.Lead
	if err := lc.DB.Where("tenant_id = ?", tenant.ID).
		Order("created_at DESC").
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.SuccessResponse(leads))
}

// GetLead returns a single lead by ID
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	leadID := c.Params("id")

	lead, err := models.FindLeadForTenant(lc.DB, tenant.ID, leadID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// UpdateLead applies a partial update to a lead.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	leadID := c.Params("id")

	var patch models.LeadPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&patch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	patch.Normalize()

	lead, err := models.ApplyLeadPatch(lc.DB, tenant.ID, leadID, &patch)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_updated",
		LeadID: lead.ID,
	})

	return c.JSON(utils.SuccessResponse(lead))
}

// MoveLeadToStage is the stage-move special case: it touches only stage_id
// and updated_at and records a stage_move activity.
func (lc *LeadController) MoveLeadToStage(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	userID := c.Locals("user_id").(string)
	leadID := c.Params("id")

	var input struct {
		StageID string `json:"stage_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var stage models.PipelineStage
	if err := lc.DB.Where("id = ? AND tenant_id = ?", input.StageID, tenant.ID).First(&stage).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
	}

	lead, err := models.FindLeadForTenant(lc.DB, tenant.ID, leadID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if err := lc.DB.Model(lead).Updates(map[string]interface{}{
		"stage_id":   input.StageID,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to move lead", err)
	}

	models.TryRecordActivity(lc.DB, lead.ID, &userID, models.ActivityStageMove,
		"Lead moved to "+stage.Name, map[string]interface{}{
			"stage_id": stage.ID,
		})

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action:  "lead_moved",
		LeadID:  lead.ID,
		StageID: stage.ID,
	})

	return c.JSON(utils.SuccessResponse(lead))
}

// DeleteLead hard-deletes a lead and its activity trail.
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	leadID := c.Params("id")

	lead, err := models.FindLeadForTenant(lc.DB, tenant.ID, leadID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", lead.ID).Delete(&models.LeadActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(lead).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", err)
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "lead_deleted",
		LeadID: lead.ID,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Lead deleted",
	})
}

// GetLeadActivities returns the lead's audit trail, newest first.
func (lc *LeadController) GetLeadActivities(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	leadID := c.Params("id")

	if _, err := models.FindLeadForTenant(lc.DB, tenant.ID, leadID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	var activities []models.LeadActivity
	if err := lc.DB.Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&activities).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch activities", err)
	}

	return c.JSON(utils.SuccessResponse(activities))
}
