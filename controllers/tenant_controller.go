package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"advportal/models"
	"advportal/utils"
)

// TenantController serves the public branding lookup the portal shell uses
// before login. Hostname resolution never fails: unmatched hosts land on the
// default tenant.
type TenantController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTenantController(db *gorm.DB, logger *log.Logger) *TenantController {
	return &TenantController{
		DB:     db,
		Logger: logger,
	}
}

// GetTenantConfig resolves the requesting hostname to its tenant identity.
// Secrets and tokens never leave this endpoint; only display attributes do.
func (tc *TenantController) GetTenantConfig(c *fiber.Ctx) error {
	tenant, err := models.FindTenantByHost(tc.DB, c.Hostname())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve tenant", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":     tenant.ID,
		"slug":   tenant.Slug,
		"name":   tenant.Name,
		"domain": tenant.Domain,
	}))
}
