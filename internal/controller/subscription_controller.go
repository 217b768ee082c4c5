package controller

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"fixmyspine_backend/internal/model"
	"fixmyspine_backend/pkg/database"
	"fixmyspine_backend/pkg/payment"
	"fixmyspine_backend/pkg/utils/jwt"
)

type CheckoutInput struct {
	BusinessID uint `json:"business_id" validate:"required"`
}

var validate = validator.New()

// CreateCheckoutSession starts the annual premium checkout for one of the
// user's businesses. The actual upgrade happens when the webhook delivers
// checkout.session.completed; this endpoint only opens the session.
func CreateCheckoutSession(gateway *payment.Gateway, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := new(CheckoutInput)
		if err := c.BodyParser(input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid input",
			})
		}
		if err := validate.Struct(input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Business ID is required",
			})
		}

		claims := c.Locals("user").(*jwt.Claims)

		var business model.Business
		if err := database.GetDB().Where("id = ? AND user_id = ?", input.BusinessID, claims.UserID).
			First(&business).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Business not found or access denied",
			})
		}

		if business.SubscriptionStatus == model.SubscriptionActive {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Business already has an active subscription",
			})
		}

		var user model.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		successURL := baseURL + "/api/subscriptions/payment-success?session_id={CHECKOUT_SESSION_ID}"
		cancelURL := baseURL + "/api/subscriptions/payment-cancelled"

		session, err := gateway.CreateCheckoutSession(c.Context(), &user, &business, successURL, cancelURL)
		if err != nil {
			log.Printf("Subscription creation error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not create checkout session",
			})
		}

		return c.JSON(fiber.Map{
			"session_id": session.ID,
			"url":        session.URL,
		})
	}
}

// HandleSubscriptionSuccess confirms the redirect after checkout. It never
// mutates the ledger: the webhook path is the single writer, so this
// handler only reports what the provider and the ledger currently say.
func HandleSubscriptionSuccess(gateway *payment.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing payment session information",
			})
		}

		paid, subscriptionID, err := gateway.SessionPaid(c.Context(), sessionID)
		if err != nil {
			log.Printf("Subscription success callback error: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Could not verify payment session",
			})
		}

		if !paid {
			return c.JSON(fiber.Map{
				"payment_status": "unpaid",
			})
		}

		// The webhook may not have landed yet; report whatever the ledger
		// holds right now.
		status := model.SubscriptionNone
		var business model.Business
		if subscriptionID != "" {
			if err := database.GetDB().Where("stripe_subscription_id = ?", subscriptionID).
				First(&business).Error; err == nil {
				status = business.SubscriptionStatus
			}
		}

		return c.JSON(fiber.Map{
			"payment_status":      "paid",
			"subscription_status": status,
		})
	}
}

// HandleSubscriptionCancel handles the redirect when the user abandons
// checkout.
func HandleSubscriptionCancel(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Checkout cancelled",
	})
}

// CancelSubscription cancels at the provider. The ledger transition
// arrives through the customer.subscription.deleted webhook; cancelling
// here does not touch local state.
func CancelSubscription(gateway *payment.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var business model.Business
		if err := database.GetDB().
			Where("user_id = ? AND subscription_status = ?", claims.UserID, model.SubscriptionActive).
			First(&business).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No active subscription found",
			})
		}

		if !business.HasSubscription() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Subscription is not linked to the payment provider",
			})
		}

		if err := gateway.CancelSubscription(c.Context(), *business.StripeSubscriptionID); err != nil {
			log.Printf("Could not cancel Stripe subscription: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not cancel subscription",
			})
		}

		return c.JSON(fiber.Map{
			"message": "Subscription cancellation requested",
		})
	}
}

// GetSubscriptionStatus returns the subscription state of one of the
// user's businesses.
func GetSubscriptionStatus(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	businessID := c.Params("business_id")

	var business model.Business
	if err := database.GetDB().Where("id = ? AND user_id = ?", businessID, claims.UserID).
		First(&business).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Business not found or access denied",
		})
	}

	return c.JSON(fiber.Map{
		"business_id":          business.ID,
		"listing_tier":         business.ListingTier,
		"subscription_status":  business.SubscriptionStatus,
		"subscription_ends_at": business.SubscriptionEndsAt,
		"has_subscription":     business.HasSubscription(),
	})
}

// GetBillingPortal redirects the user to the provider's billing portal.
func GetBillingPortal(gateway *payment.Gateway, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var user model.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		url, err := gateway.PortalURL(c.Context(), &user, baseURL+"/dashboard")
		if err != nil {
			log.Printf("Customer portal error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not access billing portal",
			})
		}

		return c.Redirect(url, fiber.StatusSeeOther)
	}
}
