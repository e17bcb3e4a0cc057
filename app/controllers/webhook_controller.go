package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/internal/pkg/billing"
	"github.com/sellforge/sellforge/internal/pkg/metrics/counter"
)

// HandleProviderWebhook ingests payment provider webhooks. The signature
// verdict comes first; only authenticated deliveries reach the event store,
// where replays and concurrent duplicates are answered from the stored row
// instead of being processed twice.
func HandleProviderWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	msgID := firstHeaderValue(c, "svix-id", "webhook-id")
	timestamp := firstHeaderValue(c, "svix-timestamp", "webhook-timestamp")
	signature := firstHeaderValue(c, "svix-signature", "webhook-signature")

	if !billing.VerifyWebhookSignature(
		rawBody, msgID, timestamp, signature,
		billingCfg.WebhookSecret, billingCfg.SignatureTolerance, time.Now(),
	) {
		if cerr := counter.AddWebhookOutcome("rejected"); cerr != nil {
			log.Printf("webhook outcome counter failed: %v", cerr)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	eventType := ""
	if envelope, err := billing.ParseEnvelope(rawBody); err == nil {
		eventType = envelope.Type
	}

	created, stored, err := billingService.RecordWebhookEvent(billing.WebhookEventInput{
		Provider:        billing.ProviderClerk,
		ProviderEventID: msgID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		if errors.Is(err, billing.ErrMissingEventID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_event_id"})
		}
		log.Printf("webhook persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		// A redelivery only short-circuits when the stored event already ran
		// to an outcome the provider should stop retrying. Rows stuck in
		// received, failed or unmatched get another processing attempt.
		if stored.Status == models.WebhookStatusProcessed || stored.Status == models.WebhookStatusIgnored {
			if cerr := counter.AddWebhookOutcome("duplicate"); cerr != nil {
				log.Printf("webhook outcome counter failed: %v", cerr)
			}
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
	}

	status, perr := billingService.ProcessEvent(stored, rawBody)
	_ = billingService.MarkWebhookProcessed(stored.ID, status, perr)

	switch status {
	case models.WebhookStatusFailed:
		log.Printf("webhook %s (%s) processing failed: %v", msgID, eventType, perr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	case models.WebhookStatusIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case models.WebhookStatusUnmatched:
		// Acknowledged so the provider stops retrying; the stored event keeps
		// the payload for later reconciliation.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "unmatched": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
