package billing

import "time"

// Provider identifiers for webhook events and payment transactions.
const (
	ProviderClerk  = "clerk"
	ProviderManual = "manual"
)

// Canonical event types after alias normalization.
const (
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventUserCreated          = "user.created"
	EventUserUpdated          = "user.updated"
	EventUserDeleted          = "user.deleted"
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// PaymentEvent is the provider-agnostic shape of a payment outcome extracted
// from a webhook payload. Reference fields are tried in a fixed order when
// matching the event to a local order.
type PaymentEvent struct {
	TransactionID      string
	Status             string
	AmountCents        int64
	Currency           string
	OrderPublicID      string
	CheckoutID         string
	PriorTransactionID string
	ProviderCustomerID string
	PayerEmail         string
	OccurredAt         time.Time
}

// SubscriptionEvent is the provider-agnostic shape of a subscription
// lifecycle change extracted from a webhook payload.
type SubscriptionEvent struct {
	SubscriptionID     string
	Status             string
	PlanRef            string
	PriceRef           string
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	CanceledAt         *time.Time
	CancelAtPeriodEnd  bool
	ProviderCustomerID string
	OrderPublicID      string
	CheckoutID         string
	TransactionID      string
	OccurredAt         time.Time
}

// UserEvent is the provider-agnostic shape of an identity lifecycle change.
type UserEvent struct {
	ExternalUserID string
	Email          string
	Name           string
	OccurredAt     time.Time
}
