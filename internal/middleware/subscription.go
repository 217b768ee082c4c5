package middleware

import (
	"fixmyspine_backend/internal/model"
	"fixmyspine_backend/pkg/database"
	"fixmyspine_backend/pkg/subscription"

	"github.com/gofiber/fiber/v2"
)

// CheckPremiumFeature bir özelliğin business'ın tier'ında olup olmadığını
// kontrol eder
func CheckPremiumFeature(feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		businessID := c.Params("business_id")

		var business model.Business
		tier := model.TierFree

		if err := database.GetDB().First(&business, businessID).Error; err == nil {
			tier = business.ListingTier
		}

		if !subscription.CanUseFeature(tier, feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This feature requires a premium listing",
			})
		}

		return c.Next()
	}
}
