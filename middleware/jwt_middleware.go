package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"advportal/config"
	"advportal/models"
	"advportal/utils"
)

// Protected gates the interactive portal API. Session management is owned by
// the hosted identity service; this middleware only verifies the token it
// issued and resolves the tenant from its claims.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
		}

		claims, err := utils.ParsePortalToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		var tenant models.Tenant
		if err := config.DB.Where("id = ?", claims.TenantID).First(&tenant).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Tenant not found",
			})
		}

		c.Locals("tenant", &tenant)
		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
