package subscriptions

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
	"github.com/sellforge/sellforge/internal/pkg/entitlements"
)

var (
	// ErrStaleEvent is returned when an event is older than the state already
	// applied to the subscription. The event is discarded.
	ErrStaleEvent = errors.New("subscription event is stale")

	// ErrUnreachableStatus is returned when the event's status is not
	// reachable from the subscription's current status.
	ErrUnreachableStatus = errors.New("subscription status not reachable")

	// ErrNoOwner is returned when no local account could be resolved for a
	// subscription event.
	ErrNoOwner = errors.New("subscription event matched no local account")
)

// Event is the normalized subscription change handed to the manager.
type Event struct {
	ProviderSubscriptionID string
	Status                 string
	PlanRef                string
	PriceRef               string
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	CanceledAt             *time.Time
	CancelAtPeriodEnd      bool
	ProviderCustomerID     string
	SourceOrderPublicID    string
	OccurredAt             time.Time
	RawPayloadJSON         string
}

// Manager applies provider subscription events to local rows and keeps plan
// entitlements in sync with the resulting status.
type Manager struct {
	subs    repository.SubscriptionRepository
	users   repository.UserRepository
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	ents    *entitlements.Service
}

// NewManager creates a subscription manager.
func NewManager(subs repository.SubscriptionRepository, users repository.UserRepository, orders repository.OrderRepository, catalog repository.CatalogRepository, ents *entitlements.Service) *Manager {
	return &Manager{subs: subs, users: users, orders: orders, catalog: catalog, ents: ents}
}

// Apply upserts the subscription state carried by the event. Stale events
// (older than the last applied one) and unreachable status changes are
// discarded with their sentinel error; both leave stored state untouched.
func (m *Manager) Apply(ev Event) (*models.Subscription, error) {
	if strings.TrimSpace(ev.ProviderSubscriptionID) == "" {
		return nil, errors.New("provider subscription id is required")
	}

	status := NormalizeStatus(ev.Status)

	sub, err := m.subs.GetByProviderSubscriptionID(ev.ProviderSubscriptionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		sub, err = m.adoptOrCreate(ev, status)
		if err != nil {
			return nil, err
		}
	} else {
		if sub.LastEventAt != nil && !ev.OccurredAt.IsZero() && ev.OccurredAt.Before(*sub.LastEventAt) {
			log.Printf("subscription %s: discarding event from %s, state is from %s",
				ev.ProviderSubscriptionID, ev.OccurredAt.Format(time.RFC3339), sub.LastEventAt.Format(time.RFC3339))
			return sub, ErrStaleEvent
		}
		if !models.SubscriptionCanTransition(sub.Status, status) {
			log.Printf("subscription %s: status %s not reachable from %s, discarding",
				ev.ProviderSubscriptionID, status, sub.Status)
			return sub, ErrUnreachableStatus
		}

		sub.Status = status
		if ev.PeriodStart != nil {
			sub.CurrentPeriodStart = ev.PeriodStart
		}
		if ev.PeriodEnd != nil {
			sub.CurrentPeriodEnd = ev.PeriodEnd
		}
		if ev.CanceledAt != nil {
			sub.CanceledAt = ev.CanceledAt
		}
		sub.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
		if ev.RawPayloadJSON != "" {
			sub.RawPayloadJSON = ev.RawPayloadJSON
		}
		if !ev.OccurredAt.IsZero() {
			occurred := ev.OccurredAt
			sub.LastEventAt = &occurred
		}
		if err := m.subs.Save(sub); err != nil {
			return nil, err
		}
	}

	if err := m.syncEntitlements(sub); err != nil {
		return sub, err
	}
	return sub, nil
}

// adoptOrCreate claims a local placeholder row created at fulfillment time,
// or builds a fresh subscription for an event that arrived first.
func (m *Manager) adoptOrCreate(ev Event, status string) (*models.Subscription, error) {
	if ev.SourceOrderPublicID != "" {
		if sub, ok, err := m.adoptPlaceholder(ev, status); err != nil {
			return nil, err
		} else if ok {
			return sub, nil
		}
	}

	userID, err := m.resolveUser(ev)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:                 userID,
		Status:                 status,
		ProviderSubscriptionID: ev.ProviderSubscriptionID,
		SourceOrderPublicID:    ev.SourceOrderPublicID,
		CurrentPeriodStart:     ev.PeriodStart,
		CurrentPeriodEnd:       ev.PeriodEnd,
		CanceledAt:             ev.CanceledAt,
		CancelAtPeriodEnd:      ev.CancelAtPeriodEnd,
		RawPayloadJSON:         ev.RawPayloadJSON,
	}
	if !ev.OccurredAt.IsZero() {
		occurred := ev.OccurredAt
		sub.LastEventAt = &occurred
	}

	if price, err := m.resolvePrice(ev); err == nil {
		priceID := price.ID
		productID := price.ProductID
		sub.PriceID = &priceID
		sub.ProductID = &productID
	}

	if err := m.subs.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// adoptPlaceholder rewrites a fulfillment-created local row to carry the real
// provider subscription ID.
func (m *Manager) adoptPlaceholder(ev Event, status string) (*models.Subscription, bool, error) {
	placeholder, err := m.findPlaceholderForOrder(ev.SourceOrderPublicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	placeholder.ProviderSubscriptionID = ev.ProviderSubscriptionID
	if models.SubscriptionCanTransition(placeholder.Status, status) {
		placeholder.Status = status
	}
	if ev.PeriodStart != nil {
		placeholder.CurrentPeriodStart = ev.PeriodStart
	}
	if ev.PeriodEnd != nil {
		placeholder.CurrentPeriodEnd = ev.PeriodEnd
	}
	placeholder.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
	if ev.RawPayloadJSON != "" {
		placeholder.RawPayloadJSON = ev.RawPayloadJSON
	}
	if !ev.OccurredAt.IsZero() {
		occurred := ev.OccurredAt
		placeholder.LastEventAt = &occurred
	}
	if err := m.subs.Save(placeholder); err != nil {
		return nil, false, err
	}
	return placeholder, true, nil
}

func (m *Manager) findPlaceholderForOrder(orderPublicID string) (*models.Subscription, error) {
	order, err := m.orders.GetByPublicID(orderPublicID)
	if err != nil {
		return nil, err
	}
	for i := range order.Items {
		sub, err := m.subs.GetByProviderSubscriptionID(
			localPlaceholderID(order.PublicID, order.Items[i].ID))
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Manager) resolveUser(ev Event) (uint, error) {
	if ev.ProviderCustomerID != "" {
		user, err := m.users.GetByExternalCustomerID(ev.ProviderCustomerID)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	if ev.SourceOrderPublicID != "" {
		order, err := m.orders.GetByPublicID(ev.SourceOrderPublicID)
		if err == nil {
			return order.UserID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	return 0, ErrNoOwner
}

func (m *Manager) resolvePrice(ev Event) (*models.Price, error) {
	return m.catalog.GetPriceByProviderRef(ev.PriceRef, ev.PlanRef)
}

// syncEntitlements reconciles plan entitlements with the stored status. The
// feature keys come from the subscribed product.
func (m *Manager) syncEntitlements(sub *models.Subscription) error {
	var keys []string
	if sub.PriceID != nil {
		price, err := m.catalog.GetPriceByID(*sub.PriceID)
		if err == nil && price.Product != nil {
			keys = price.Product.NormalizedFeatureKeys()
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}

	at := time.Now()
	if sub.LastEventAt != nil {
		at = *sub.LastEventAt
	}
	return m.ents.SyncSubscription(sub.UserID, keys, sub.ProviderSubscriptionID, sub.Status, at)
}

// NormalizeStatus folds provider status spellings onto the local constants.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return models.SubscriptionStatusActive
	case "trialing", "trial":
		return models.SubscriptionStatusTrialing
	case "past_due", "unpaid", "overdue":
		return models.SubscriptionStatusPastDue
	case "paused", "on_hold":
		return models.SubscriptionStatusPaused
	case "canceled", "cancelled", "ended", "expired":
		return models.SubscriptionStatusCanceled
	case "incomplete", "pending":
		return models.SubscriptionStatusIncomplete
	default:
		return models.SubscriptionStatusIncomplete
	}
}

func localPlaceholderID(orderPublicID string, itemID uint) string {
	return fmt.Sprintf("local:%s:%d", orderPublicID, itemID)
}
