package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/internal/pkg/metrics/counter"
	"github.com/sellforge/sellforge/internal/pkg/usercontext"
)

// HandleAccountProfile returns the caller's account data.
func HandleAccountProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "profile_lookup_failed"})
	}
	return c.JSON(user)
}

// HandleAccountEntitlements returns the caller's current entitlements.
func HandleAccountEntitlements(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	currentOnly := c.QueryBool("current", true)
	ents, err := repos.Fulfillment.ListEntitlementsByUser(userCtx.UserID, currentOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement_list_failed"})
	}
	return c.JSON(fiber.Map{"entitlements": ents})
}

// HandleAccountSubscriptions returns the caller's subscriptions.
func HandleAccountSubscriptions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	subs, err := repos.Subscription.ListByUser(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_list_failed"})
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// HandleAccountBookings returns the caller's service bookings.
func HandleAccountBookings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	bookings, err := repos.Fulfillment.ListBookingsByUser(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "booking_list_failed"})
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

// HandleWebhookStats reports event store counts and in-cache outcome
// counters. Admin only.
func HandleWebhookStats(c *fiber.Ctx) error {
	statuses := []string{
		models.WebhookStatusReceived,
		models.WebhookStatusProcessed,
		models.WebhookStatusIgnored,
		models.WebhookStatusUnmatched,
		models.WebhookStatusFailed,
	}
	stored := make(fiber.Map, len(statuses))
	for _, status := range statuses {
		count, err := repos.WebhookEvent.CountByStatus(status)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_failed"})
		}
		stored[status] = count
	}

	outcomes, err := counter.WebhookOutcomes()
	if err != nil {
		log.Printf("webhook outcome read failed: %v", err)
		outcomes = map[string]int64{}
	}

	return c.JSON(fiber.Map{"stored": stored, "since_start": outcomes})
}
