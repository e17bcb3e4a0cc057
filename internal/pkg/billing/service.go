package billing

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
	"github.com/sellforge/sellforge/internal/pkg/fulfillment"
	"github.com/sellforge/sellforge/internal/pkg/metrics/counter"
	"github.com/sellforge/sellforge/internal/pkg/orders"
	"github.com/sellforge/sellforge/internal/pkg/subscriptions"
)

// Service routes verified webhook events into the order and subscription
// state machines and runs fulfillment for confirmed payments. It also backs
// the manual confirmation path, which shares the confirmation code with the
// webhook path and differs only in its ConfirmationPolicy.
type Service struct {
	events   repository.WebhookEventRepository
	users    repository.UserRepository
	orderMgr *orders.Manager
	subMgr   *subscriptions.Manager
	engine   *fulfillment.Engine
	matcher  *OrderMatcher
}

// NewService creates the billing service.
func NewService(
	events repository.WebhookEventRepository,
	users repository.UserRepository,
	orderMgr *orders.Manager,
	subMgr *subscriptions.Manager,
	engine *fulfillment.Engine,
	matcher *OrderMatcher,
) *Service {
	return &Service{
		events:   events,
		users:    users,
		orderMgr: orderMgr,
		subMgr:   subMgr,
		engine:   engine,
		matcher:  matcher,
	}
}

// RecordWebhookEvent persists the delivery before any processing. Exactly one
// of two concurrent identical deliveries observes created=true and goes on to
// process; the other returns the stored row and stops.
func (s *Service) RecordWebhookEvent(in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	eventID := strings.TrimSpace(in.ProviderEventID)
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	if eventID == "" {
		return false, nil, ErrMissingEventID
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		Status:          models.WebhookStatusReceived,
	}
	return s.events.CreateIfNotExists(event)
}

// MarkWebhookProcessed finalizes the stored event with an outcome status.
func (s *Service) MarkWebhookProcessed(id uint, status string, processingError error) error {
	msg := ""
	if processingError != nil {
		msg = processingError.Error()
	}
	if err := counter.AddWebhookOutcome(status); err != nil {
		log.Printf("webhook outcome counter failed: %v", err)
	}
	return s.events.MarkProcessed(id, status, msg)
}

// ProcessEvent routes a freshly recorded event. The returned status is what
// the event store should be finalized with; the error carries the processing
// failure when the status is failed.
func (s *Service) ProcessEvent(stored *models.WebhookEvent, payload []byte) (string, error) {
	envelope, err := ParseEnvelope(payload)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	switch NormalizeEventType(envelope.Type) {
	case EventPaymentSucceeded:
		return s.handlePaymentSucceeded(envelope, payload)
	case EventPaymentFailed:
		return s.handlePaymentFailed(envelope, payload)
	case EventPaymentRefunded:
		return s.handlePaymentRefunded(envelope, payload)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionCanceled:
		return s.handleSubscriptionEvent(envelope, payload)
	case EventUserCreated, EventUserUpdated:
		return s.handleUserUpserted(envelope)
	case EventUserDeleted:
		return s.handleUserDeleted(envelope)
	default:
		log.Printf("webhook event %s: type %q not handled, ignoring", stored.ProviderEventID, envelope.Type)
		return models.WebhookStatusIgnored, nil
	}
}

func (s *Service) handlePaymentSucceeded(envelope *Envelope, payload []byte) (string, error) {
	ev, err := ParsePaymentEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	order, matchedBy, err := s.matcher.Match(ev)
	if err != nil {
		if errors.Is(err, ErrUnmatchedPayment) {
			log.Printf("payment %s: no matching order (refs: order=%s checkout=%s prior=%s)",
				ev.TransactionID, ev.OrderPublicID, ev.CheckoutID, ev.PriorTransactionID)
			return models.WebhookStatusUnmatched, nil
		}
		return models.WebhookStatusFailed, err
	}
	log.Printf("payment %s: matched order %s by %s", ev.TransactionID, order.PublicID, matchedBy)

	info := s.paymentInfo(ev, payload)
	confirmed, err := s.orderMgr.ConfirmPayment(order, info)
	if err != nil {
		if errors.Is(err, orders.ErrIllegalTransition) {
			// Payment landed on a canceled or failed order. The transaction
			// is recorded for review; the order does not move.
			return models.WebhookStatusProcessed, nil
		}
		return models.WebhookStatusFailed, err
	}
	if !confirmed && order.Status == models.OrderStatusFulfilled {
		return models.WebhookStatusProcessed, nil
	}

	// Re-read with items preloaded for fulfillment.
	fresh, err := s.orderMgr.Reload(order.ID)
	if err != nil {
		return models.WebhookStatusFailed, err
	}
	result, err := s.engine.Fulfill(fresh, info.At)
	if err != nil {
		return models.WebhookStatusFailed, err
	}
	if failed := result.Failed(); len(failed) > 0 {
		log.Printf("order %s: %d of %d items failed fulfillment, order stays paid", fresh.PublicID, len(failed), len(result.Items))
	}
	return models.WebhookStatusProcessed, nil
}

func (s *Service) handlePaymentFailed(envelope *Envelope, payload []byte) (string, error) {
	ev, err := ParsePaymentEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	order, _, err := s.matcher.Match(ev)
	if err != nil {
		if errors.Is(err, ErrUnmatchedPayment) {
			return models.WebhookStatusUnmatched, nil
		}
		return models.WebhookStatusFailed, err
	}

	if err := s.orderMgr.ApplyPaymentFailure(order, s.paymentInfo(ev, payload)); err != nil {
		return models.WebhookStatusFailed, err
	}
	return models.WebhookStatusProcessed, nil
}

func (s *Service) handlePaymentRefunded(envelope *Envelope, payload []byte) (string, error) {
	ev, err := ParsePaymentEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	order, _, err := s.matcher.Match(ev)
	if err != nil {
		if errors.Is(err, ErrUnmatchedPayment) {
			return models.WebhookStatusUnmatched, nil
		}
		return models.WebhookStatusFailed, err
	}

	if err := s.orderMgr.ApplyRefund(order, s.paymentInfo(ev, payload)); err != nil {
		return models.WebhookStatusFailed, err
	}
	return models.WebhookStatusProcessed, nil
}

func (s *Service) handleSubscriptionEvent(envelope *Envelope, payload []byte) (string, error) {
	ev, err := ParseSubscriptionEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	_, err = s.subMgr.Apply(subscriptions.Event{
		ProviderSubscriptionID: ev.SubscriptionID,
		Status:                 ev.Status,
		PlanRef:                ev.PlanRef,
		PriceRef:               ev.PriceRef,
		PeriodStart:            ev.PeriodStart,
		PeriodEnd:              ev.PeriodEnd,
		CanceledAt:             ev.CanceledAt,
		CancelAtPeriodEnd:      ev.CancelAtPeriodEnd,
		ProviderCustomerID:     ev.ProviderCustomerID,
		SourceOrderPublicID:    ev.OrderPublicID,
		OccurredAt:             ev.OccurredAt,
		RawPayloadJSON:         string(payload),
	})
	if err != nil {
		switch {
		case errors.Is(err, subscriptions.ErrStaleEvent),
			errors.Is(err, subscriptions.ErrUnreachableStatus):
			return models.WebhookStatusIgnored, nil
		case errors.Is(err, subscriptions.ErrNoOwner):
			return models.WebhookStatusUnmatched, nil
		default:
			return models.WebhookStatusFailed, err
		}
	}
	return models.WebhookStatusProcessed, nil
}

func (s *Service) handleUserUpserted(envelope *Envelope) (string, error) {
	ev, err := ParseUserEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}

	user := &models.User{
		Name:               ev.Name,
		Email:              ev.Email,
		ExternalCustomerID: ev.ExternalUserID,
		Status:             models.STATUS_ACTIVE,
		Role:               models.ROLE_USER,
	}
	if user.Name == "" {
		user.Name = ev.Email
	}
	if err := s.users.UpsertByExternalCustomerID(user); err != nil {
		return models.WebhookStatusFailed, err
	}
	return models.WebhookStatusProcessed, nil
}

func (s *Service) handleUserDeleted(envelope *Envelope) (string, error) {
	ev, err := ParseUserEvent(envelope.Data, envelope.OccurredAt)
	if err != nil {
		return models.WebhookStatusFailed, err
	}
	if err := s.users.DeactivateByExternalCustomerID(ev.ExternalUserID); err != nil {
		return models.WebhookStatusFailed, err
	}
	return models.WebhookStatusProcessed, nil
}

// ConfirmOrder runs the shared confirmation path under a policy. Both the
// webhook handler (implicitly, via handlePaymentSucceeded) and the manual
// override endpoint end up in the same order manager and fulfillment engine.
func (s *Service) ConfirmOrder(order *models.Order, policy ConfirmationPolicy, presentedSecret string, at time.Time) (*fulfillment.Result, error) {
	if err := policy.Authorize(presentedSecret); err != nil {
		return nil, err
	}

	info := orders.PaymentInfo{
		Provider:    ProviderManual,
		ExternalID:  policy.Source() + ":" + order.PublicID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		At:          at,
	}
	if policy.Source() == ConfirmationSourceWebhook {
		info.Provider = ProviderClerk
	}

	if _, err := s.orderMgr.ConfirmPayment(order, info); err != nil {
		if !errors.Is(err, orders.ErrIllegalTransition) {
			return nil, err
		}
		return nil, ErrIllegalTransition
	}

	fresh, err := s.orderMgr.Reload(order.ID)
	if err != nil {
		return nil, err
	}
	return s.engine.Fulfill(fresh, at)
}

func (s *Service) paymentInfo(ev *PaymentEvent, payload []byte) orders.PaymentInfo {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return orders.PaymentInfo{
		Provider:          ProviderClerk,
		ExternalID:        ev.TransactionID,
		AmountCents:       ev.AmountCents,
		Currency:          strings.ToUpper(ev.Currency),
		CheckoutID:        ev.CheckoutID,
		ExternalReference: ev.PriorTransactionID,
		RawPayloadJSON:    string(payload),
		At:                at,
	}
}
