package billing

import (
	"strings"
	"time"

	"github.com/sellforge/sellforge/internal/pkg/env"
)

// Config carries the webhook and confirmation settings read from the
// environment.
type Config struct {
	WebhookSecret      string
	SignatureTolerance time.Duration
	ManualConfirm      ManualConfirmation
}

// ConfigFromEnv reads the billing configuration. Missing values disable the
// paths that depend on them rather than failing startup.
func ConfigFromEnv() Config {
	tolerance := DefaultSignatureTolerance
	if raw := strings.TrimSpace(env.GetEnv("WEBHOOK_SIGNATURE_TOLERANCE", "")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			tolerance = d
		}
	}

	return Config{
		WebhookSecret:      strings.TrimSpace(env.GetEnv("CLERK_WEBHOOK_SIGNING_SECRET", "")),
		SignatureTolerance: tolerance,
		ManualConfirm: ManualConfirmation{
			Enabled: env.GetEnv("MANUAL_ORDER_CONFIRM_ENABLED", "false") == "true",
			Secret:  strings.TrimSpace(env.GetEnv("ORDER_CONFIRM_SECRET", "")),
		},
	}
}
