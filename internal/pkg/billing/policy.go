package billing

import (
	"crypto/subtle"
	"strings"
)

// Confirmation sources recorded on payment transactions.
const (
	ConfirmationSourceWebhook = "webhook"
	ConfirmationSourceManual  = "manual"
)

// ConfirmationPolicy decides whether a confirmation request may enter the
// order confirmation path. Both the webhook path and the manual override run
// through the same downstream code once authorized.
type ConfirmationPolicy interface {
	// Authorize checks the presented credential. A nil error admits the
	// request.
	Authorize(presentedSecret string) error
	// Source labels transactions created under this policy.
	Source() string
}

// WebhookConfirmation admits requests whose webhook signature already
// verified. Signature checking happens at the transport boundary, so this
// policy has nothing left to check.
type WebhookConfirmation struct{}

func (WebhookConfirmation) Authorize(string) error { return nil }
func (WebhookConfirmation) Source() string         { return ConfirmationSourceWebhook }

// ManualConfirmation gates the manual override path behind two independent
// controls: a feature flag and a shared secret. Both must pass.
type ManualConfirmation struct {
	Enabled bool
	Secret  string
}

func (p ManualConfirmation) Authorize(presentedSecret string) error {
	if !p.Enabled {
		return ErrManualConfirmDisabled
	}
	secret := strings.TrimSpace(p.Secret)
	presented := strings.TrimSpace(presentedSecret)
	if secret == "" || presented == "" {
		return ErrConfirmSecretInvalid
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) != 1 {
		return ErrConfirmSecretInvalid
	}
	return nil
}

func (p ManualConfirmation) Source() string { return ConfirmationSourceManual }
