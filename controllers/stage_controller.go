package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"advportal/models"
	"advportal/utils"
)

// StageController manages the tenant's pipeline stages.
type StageController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewStageController(db *gorm.DB, logger *log.Logger) *StageController {
	return &StageController{
		DB:     db,
		Logger: logger,
	}
}

// GetStages lists the tenant's stages in display order.
func (sc *StageController) GetStages(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	var stages []models.PipelineStage
	if err := sc.DB.Where("tenant_id = ?", tenant.ID).
		Order("position ASC").
		Find(&stages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stages", err)
	}

	return c.JSON(utils.SuccessResponse(stages))
}

// CreateStage appends a stage at the end of the pipeline.
func (sc *StageController) CreateStage(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	var input struct {
		Name  string `json:"name" validate:"required,min=1"`
		Color string `json:"color"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	position, err := models.NextStagePosition(sc.DB, tenant.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute position", err)
	}

	stage := models.PipelineStage{
		TenantID: tenant.ID,
		Name:     input.Name,
		Color:    input.Color,
		Position: position,
	}
	if err := sc.DB.Create(&stage).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create stage", err)
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action:  "stage_created",
		StageID: stage.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(stage))
}

// UpdateStage partially updates name/color/position/is_default.
func (sc *StageController) UpdateStage(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	stageID := c.Params("id")

	var input struct {
		Name      *string `json:"name" validate:"omitempty,min=1"`
		Color     *string `json:"color"`
		Position  *int    `json:"position"`
		IsDefault *bool   `json:"is_default"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var stage models.PipelineStage
	if err := sc.DB.Where("id = ? AND tenant_id = ?", stageID, tenant.ID).First(&stage).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch stage", err)
	}

	changes := map[string]interface{}{}
	if input.Name != nil {
		changes["name"] = *input.Name
	}
	if input.Color != nil {
		changes["color"] = *input.Color
	}
	if input.Position != nil {
		changes["position"] = *input.Position
	}
	if input.IsDefault != nil {
		changes["is_default"] = *input.IsDefault
	}

	if len(changes) > 0 {
		if err := sc.DB.Model(&stage).Updates(changes).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", err)
		}
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action:  "stage_updated",
		StageID: stage.ID,
	})

	return c.JSON(utils.SuccessResponse(stage))
}

// DeleteStage removes a stage; its leads land in the null-stage bucket, they
// are never deleted with it.
func (sc *StageController) DeleteStage(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	stageID := c.Params("id")

	if err := models.DeleteStage(sc.DB, tenant.ID, stageID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete stage", err)
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action:  "stage_deleted",
		StageID: stageID,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Stage deleted",
	})
}

// ReorderStages rewrites positions from the given id order.
func (sc *StageController) ReorderStages(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	var input struct {
		OrderedIDs []string `json:"ordered_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := models.ReorderStages(sc.DB, tenant.ID, input.OrderedIDs); err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reorder stages", err)
	}

	BroadcastBoardEvent(tenant.ID, BoardEvent{
		Action: "stages_reordered",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Stages reordered",
	})
}
