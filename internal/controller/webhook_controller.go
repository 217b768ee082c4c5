package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74/webhook"

	"fixmyspine_backend/pkg/subscription"
)

// HandleStripeWebhook verifies the event signature and hands the envelope
// to the reconciliation engine. Everything except a transient storage
// failure is acknowledged with 200 so Stripe does not disable the endpoint
// over conditions a redelivery cannot fix.
func HandleStripeWebhook(engine *subscription.Engine, webhookSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := c.Body()
		signatureHeader := c.Get("Stripe-Signature")

		event, err := webhook.ConstructEvent(payload, signatureHeader, webhookSecret)
		if err != nil {
			log.Printf("Webhook signature verification failed: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		}

		log.Printf("Processing Stripe webhook event: %s (%s)", event.Type, event.ID)

		env := subscription.Envelope{
			ID:       event.ID,
			Type:     string(event.Type),
			Created:  event.Created,
			Data:     event.Data.Raw,
			Verified: true,
		}

		outcome, err := engine.Ingest(c.Context(), env)
		if !outcome.Acknowledge() {
			log.Printf("Requesting redelivery of event %s: %v", event.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process event",
			})
		}

		return c.JSON(fiber.Map{"received": true, "outcome": string(outcome)})
	}
}
