package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Envelope is the outer webhook payload shape shared by all event types.
type Envelope struct {
	Type       string
	OccurredAt time.Time
	Data       json.RawMessage
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ParseEnvelope decodes the outer event envelope. The data payload stays raw
// until the event type has been normalized and routed.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var raw struct {
		Type      string          `json:"type"`
		Timestamp eventTime       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("webhook payload missing event type")
	}

	out := &Envelope{
		Type: strings.TrimSpace(raw.Type),
		Data: raw.Data,
	}
	if t := raw.Timestamp.ptr(); t != nil {
		out.OccurredAt = *t
	}
	return out, nil
}

// NormalizeEventType folds provider spelling variants onto the canonical
// event type constants. Unknown types pass through unchanged so the caller
// can record them as ignored.
func NormalizeEventType(eventType string) string {
	t := strings.ToLower(strings.TrimSpace(eventType))
	switch t {
	case "payment.succeeded", "payment.completed", "paymentattempt.updated.paid", "payment.paid":
		return EventPaymentSucceeded
	case "payment.failed", "paymentattempt.updated.failed", "payment.payment_failed":
		return EventPaymentFailed
	case "payment.refunded", "payment.refund.created":
		return EventPaymentRefunded
	case "subscription.created", "subscriptionitem.created":
		return EventSubscriptionCreated
	case "subscription.updated", "subscriptionitem.updated", "subscription.active", "subscriptionitem.active":
		return EventSubscriptionUpdated
	case "subscription.canceled", "subscription.cancelled", "subscriptionitem.canceled", "subscriptionitem.ended":
		return EventSubscriptionCanceled
	case "user.created":
		return EventUserCreated
	case "user.updated":
		return EventUserUpdated
	case "user.deleted":
		return EventUserDeleted
	default:
		return t
	}
}

// ParsePaymentEvent extracts the normalized payment shape from an envelope
// data payload. Reference fields that the provider did not send stay empty.
func ParsePaymentEvent(data []byte, occurredAt time.Time) (*PaymentEvent, error) {
	var raw struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount int64  `json:"amount"`
		Totals struct {
			GrandTotal struct {
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"grand_total"`
		} `json:"totals"`
		Currency       string            `json:"currency"`
		CheckoutID     string            `json:"checkout_id"`
		SubscriptionID string            `json:"subscription_id"`
		Metadata       map[string]string `json:"metadata"`
		Payer          struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
		} `json:"payer"`
		UserID    string    `json:"user_id"`
		Email     string    `json:"email"`
		UpdatedAt eventTime `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("payment event missing transaction id")
	}

	out := &PaymentEvent{
		TransactionID:      strings.TrimSpace(raw.ID),
		Status:             strings.ToLower(strings.TrimSpace(raw.Status)),
		AmountCents:        raw.Amount,
		Currency:           strings.ToLower(strings.TrimSpace(raw.Currency)),
		CheckoutID:         strings.TrimSpace(raw.CheckoutID),
		PriorTransactionID: strings.TrimSpace(raw.SubscriptionID),
		ProviderCustomerID: strings.TrimSpace(raw.Payer.UserID),
		PayerEmail:         strings.TrimSpace(raw.Payer.Email),
		OccurredAt:         occurredAt,
	}
	if raw.Totals.GrandTotal.Amount > 0 {
		out.AmountCents = raw.Totals.GrandTotal.Amount
	}
	if c := strings.ToLower(strings.TrimSpace(raw.Totals.GrandTotal.Currency)); c != "" {
		out.Currency = c
	}
	if out.ProviderCustomerID == "" {
		out.ProviderCustomerID = strings.TrimSpace(raw.UserID)
	}
	if out.PayerEmail == "" {
		out.PayerEmail = strings.TrimSpace(raw.Email)
	}
	if t := raw.UpdatedAt.ptr(); t != nil && out.OccurredAt.IsZero() {
		out.OccurredAt = *t
	}

	out.OrderPublicID = orderPublicIDFromMetadata(raw.Metadata)
	return out, nil
}

// ParseSubscriptionEvent extracts the normalized subscription shape from an
// envelope data payload.
func ParseSubscriptionEvent(data []byte, occurredAt time.Time) (*SubscriptionEvent, error) {
	var raw struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Plan   struct {
			ID string `json:"id"`
		} `json:"plan"`
		PlanID             string            `json:"plan_id"`
		PriceID            string            `json:"price_id"`
		PeriodStart        eventTime         `json:"period_start"`
		PeriodEnd          eventTime         `json:"period_end"`
		CurrentPeriodStart eventTime         `json:"current_period_start"`
		CurrentPeriodEnd   eventTime         `json:"current_period_end"`
		CanceledAt         eventTime         `json:"canceled_at"`
		CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
		CheckoutID         string            `json:"checkout_id"`
		LatestPaymentID    string            `json:"latest_payment_id"`
		Metadata           map[string]string `json:"metadata"`
		Payer              struct {
			UserID string `json:"user_id"`
		} `json:"payer"`
		UserID    string    `json:"user_id"`
		UpdatedAt eventTime `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("subscription event missing subscription id")
	}

	out := &SubscriptionEvent{
		SubscriptionID:     strings.TrimSpace(raw.ID),
		Status:             strings.ToLower(strings.TrimSpace(raw.Status)),
		PlanRef:            strings.TrimSpace(raw.Plan.ID),
		PriceRef:           strings.TrimSpace(raw.PriceID),
		PeriodStart:        raw.PeriodStart.ptr(),
		PeriodEnd:          raw.PeriodEnd.ptr(),
		CanceledAt:         raw.CanceledAt.ptr(),
		CancelAtPeriodEnd:  raw.CancelAtPeriodEnd,
		ProviderCustomerID: strings.TrimSpace(raw.Payer.UserID),
		CheckoutID:         strings.TrimSpace(raw.CheckoutID),
		TransactionID:      strings.TrimSpace(raw.LatestPaymentID),
		OccurredAt:         occurredAt,
	}
	if out.PlanRef == "" {
		out.PlanRef = strings.TrimSpace(raw.PlanID)
	}
	if out.PeriodStart == nil {
		out.PeriodStart = raw.CurrentPeriodStart.ptr()
	}
	if out.PeriodEnd == nil {
		out.PeriodEnd = raw.CurrentPeriodEnd.ptr()
	}
	if out.ProviderCustomerID == "" {
		out.ProviderCustomerID = strings.TrimSpace(raw.UserID)
	}
	if t := raw.UpdatedAt.ptr(); t != nil && out.OccurredAt.IsZero() {
		out.OccurredAt = *t
	}

	out.OrderPublicID = orderPublicIDFromMetadata(raw.Metadata)
	return out, nil
}

// ParseUserEvent extracts the normalized identity shape from an envelope
// data payload. The primary email is resolved from the address list the way
// the provider marks it.
func ParseUserEvent(data []byte, occurredAt time.Time) (*UserEvent, error) {
	var raw struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		PrimaryEmailID string `json:"primary_email_address_id"`
		EmailAddresses []struct {
			ID           string `json:"id"`
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("user event missing user id")
	}

	email := ""
	for _, addr := range raw.EmailAddresses {
		if raw.PrimaryEmailID != "" && addr.ID != raw.PrimaryEmailID {
			continue
		}
		if e := strings.TrimSpace(addr.EmailAddress); e != "" {
			email = e
			break
		}
	}
	if email == "" && len(raw.EmailAddresses) > 0 {
		email = strings.TrimSpace(raw.EmailAddresses[0].EmailAddress)
	}

	name := strings.TrimSpace(fmt.Sprintf("%s %s", strings.TrimSpace(raw.FirstName), strings.TrimSpace(raw.LastName)))

	return &UserEvent{
		ExternalUserID: strings.TrimSpace(raw.ID),
		Email:          email,
		Name:           name,
		OccurredAt:     occurredAt,
	}, nil
}

// orderPublicIDFromMetadata finds the order public ID a checkout stamped into
// the provider metadata. Known keys are tried first, then any value that
// looks like a UUID.
func orderPublicIDFromMetadata(metadata map[string]string) string {
	for _, key := range []string{"order_public_id", "order_id", "order"} {
		if v := strings.TrimSpace(metadata[key]); uuidPattern.MatchString(v) {
			return v
		}
	}
	for _, v := range metadata {
		if v = strings.TrimSpace(v); uuidPattern.MatchString(v) {
			return v
		}
	}
	return ""
}

// eventTime decodes the provider's timestamp spellings: epoch seconds, epoch
// milliseconds (split at 1e12) or an RFC 3339 string. Values that do not
// parse are dropped rather than failing the whole event.
type eventTime struct {
	val *time.Time
}

func (e *eventTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		e.val = epochTime(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		e.val = epochTime(int64(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(str)); err == nil {
		t = t.UTC()
		e.val = &t
	}
	return nil
}

func (e eventTime) ptr() *time.Time { return e.val }

func epochTime(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n >= 1_000_000_000_000 {
		t = time.UnixMilli(n)
	} else {
		t = time.Unix(n, 0)
	}
	t = t.UTC()
	return &t
}
