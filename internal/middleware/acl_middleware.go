package middleware

import (
	"fixmyspine_backend/internal/model"
	"fixmyspine_backend/pkg/database"
	"fixmyspine_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// CheckBusinessOwnership business kaydının sahibi olup olmadığını kontrol eder
func CheckBusinessOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		businessID := c.Params("business_id")

		var business model.Business
		if err := database.GetDB().First(&business, businessID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Business not found",
			})
		}

		if business.UserID != claims.UserID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this business",
			})
		}

		return c.Next()
	}
}
