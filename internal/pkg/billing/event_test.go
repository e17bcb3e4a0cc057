package billing

import (
	"testing"
	"time"
)

func TestNormalizeEventType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "payment.succeeded", want: EventPaymentSucceeded},
		{in: "payment.completed", want: EventPaymentSucceeded},
		{in: "paymentAttempt.updated.paid", want: EventPaymentSucceeded},
		{in: "payment.failed", want: EventPaymentFailed},
		{in: "payment.refund.created", want: EventPaymentRefunded},
		{in: "subscription.created", want: EventSubscriptionCreated},
		{in: "subscriptionItem.active", want: EventSubscriptionUpdated},
		{in: "subscription.cancelled", want: EventSubscriptionCanceled},
		{in: "subscriptionItem.ended", want: EventSubscriptionCanceled},
		{in: "user.created", want: EventUserCreated},
		{in: "user.deleted", want: EventUserDeleted},
		{in: "something.else", want: "something.else"},
		{in: "  Payment.Succeeded  ", want: EventPaymentSucceeded},
	}

	for _, tt := range tests {
		if got := NormalizeEventType(tt.in); got != tt.want {
			t.Fatalf("NormalizeEventType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"payment.succeeded","timestamp":1767225600000,"data":{"id":"pay_1"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != "payment.succeeded" {
		t.Fatalf("unexpected type %q", env.Type)
	}
	if env.OccurredAt.IsZero() {
		t.Fatalf("expected occurred-at to be set from the timestamp")
	}
	if string(env.Data) != `{"id":"pay_1"}` {
		t.Fatalf("unexpected data payload %s", env.Data)
	}

	if _, err := ParseEnvelope([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := ParseEnvelope([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestEventTimestampFormats(t *testing.T) {
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "epoch milliseconds", payload: `{"type":"t","timestamp":1767225600000}`},
		{name: "epoch seconds", payload: `{"type":"t","timestamp":1767225600}`},
		{name: "rfc3339 string", payload: `{"type":"t","timestamp":"2026-01-01T00:00:00Z"}`},
	}
	for _, tt := range tests {
		env, err := ParseEnvelope([]byte(tt.payload))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !env.OccurredAt.Equal(want) {
			t.Fatalf("%s: occurred-at = %v, want %v", tt.name, env.OccurredAt, want)
		}
	}

	// Period bounds sent in epoch seconds must not decode as 1970.
	ev, err := ParseSubscriptionEvent([]byte(`{
		"id": "sub_9",
		"status": "active",
		"current_period_start": 1767225600,
		"current_period_end": 1769904000,
		"updated_at": "2026-01-02T03:04:05Z"
	}`), time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.PeriodStart == nil || !ev.PeriodStart.Equal(want) {
		t.Fatalf("period start = %v, want %v", ev.PeriodStart, want)
	}
	if wantUpdated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !ev.OccurredAt.Equal(wantUpdated) {
		t.Fatalf("occurred-at = %v, want %v", ev.OccurredAt, wantUpdated)
	}

	// Unparseable values stay nil instead of failing the event.
	ev, err = ParseSubscriptionEvent([]byte(`{"id":"sub_10","status":"active","canceled_at":"soon"}`), time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.CanceledAt != nil {
		t.Fatalf("expected unparseable canceled_at to stay nil, got %v", ev.CanceledAt)
	}
}

func TestParsePaymentEvent(t *testing.T) {
	occurred := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data := []byte(`{
		"id": "pay_123",
		"status": "Paid",
		"amount": 100,
		"totals": {"grand_total": {"amount": 2500, "currency": "USD"}},
		"checkout_id": "chk_9",
		"subscription_id": "sub_7",
		"metadata": {"order_public_id": "7d444840-9dc0-11d1-b245-5ffdce74fad2"},
		"payer": {"user_id": "user_abc", "email": "buyer@example.com"}
	}`)

	ev, err := ParsePaymentEvent(data, occurred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.TransactionID != "pay_123" {
		t.Fatalf("unexpected transaction id %q", ev.TransactionID)
	}
	if ev.Status != "paid" {
		t.Fatalf("unexpected status %q", ev.Status)
	}
	if ev.AmountCents != 2500 {
		t.Fatalf("expected grand total to win, got %d", ev.AmountCents)
	}
	if ev.Currency != "usd" {
		t.Fatalf("unexpected currency %q", ev.Currency)
	}
	if ev.CheckoutID != "chk_9" || ev.PriorTransactionID != "sub_7" {
		t.Fatalf("unexpected references %q / %q", ev.CheckoutID, ev.PriorTransactionID)
	}
	if ev.OrderPublicID != "7d444840-9dc0-11d1-b245-5ffdce74fad2" {
		t.Fatalf("unexpected order public id %q", ev.OrderPublicID)
	}
	if ev.ProviderCustomerID != "user_abc" || ev.PayerEmail != "buyer@example.com" {
		t.Fatalf("unexpected payer fields %q / %q", ev.ProviderCustomerID, ev.PayerEmail)
	}
	if !ev.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected occurred-at %v", ev.OccurredAt)
	}

	if _, err := ParsePaymentEvent([]byte(`{"status":"paid"}`), occurred); err == nil {
		t.Fatalf("expected error for missing transaction id")
	}
}

func TestParsePaymentEvent_MetadataScan(t *testing.T) {
	data := []byte(`{
		"id": "pay_9",
		"status": "paid",
		"metadata": {"note": "gift", "custom_ref": "11111111-2222-3333-4444-555555555555"}
	}`)

	ev, err := ParsePaymentEvent(data, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.OrderPublicID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("expected uuid-shaped metadata value to match, got %q", ev.OrderPublicID)
	}
}

func TestParseSubscriptionEvent(t *testing.T) {
	data := []byte(`{
		"id": "sub_42",
		"status": "Active",
		"plan": {"id": "plan_pro"},
		"current_period_start": 1767225600000,
		"current_period_end": 1769904000000,
		"cancel_at_period_end": true,
		"payer": {"user_id": "user_abc"}
	}`)

	ev, err := ParseSubscriptionEvent(data, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.SubscriptionID != "sub_42" || ev.Status != "active" || ev.PlanRef != "plan_pro" {
		t.Fatalf("unexpected fields %q / %q / %q", ev.SubscriptionID, ev.Status, ev.PlanRef)
	}
	if ev.PeriodStart == nil || ev.PeriodEnd == nil {
		t.Fatalf("expected period bounds to be set")
	}
	if !ev.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end")
	}
	if ev.ProviderCustomerID != "user_abc" {
		t.Fatalf("unexpected customer id %q", ev.ProviderCustomerID)
	}

	if _, err := ParseSubscriptionEvent([]byte(`{}`), time.Time{}); err == nil {
		t.Fatalf("expected error for missing subscription id")
	}
}

func TestParseUserEvent(t *testing.T) {
	data := []byte(`{
		"id": "user_abc",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"primary_email_address_id": "em_2",
		"email_addresses": [
			{"id": "em_1", "email_address": "old@example.com"},
			{"id": "em_2", "email_address": "ada@example.com"}
		]
	}`)

	ev, err := ParseUserEvent(data, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ExternalUserID != "user_abc" {
		t.Fatalf("unexpected user id %q", ev.ExternalUserID)
	}
	if ev.Email != "ada@example.com" {
		t.Fatalf("expected primary email, got %q", ev.Email)
	}
	if ev.Name != "Ada Lovelace" {
		t.Fatalf("unexpected name %q", ev.Name)
	}
}
