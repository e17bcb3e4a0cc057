package billing

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
)

// Match keys, in the order they are tried.
const (
	MatchByOrderPublicID = "order_public_id"
	MatchByCheckoutID    = "checkout_id"
	MatchByExternalRef   = "external_reference"
)

// OrderMatcher resolves payment events to local orders. The reference keys
// are tried in a fixed order so that a payload carrying several keys always
// resolves the same way.
type OrderMatcher struct {
	orders   repository.OrderRepository
	provider string
}

// NewOrderMatcher creates a matcher over the order repository for one
// payment provider.
func NewOrderMatcher(orders repository.OrderRepository, provider string) *OrderMatcher {
	return &OrderMatcher{orders: orders, provider: provider}
}

// Match returns the order a payment event refers to and the key that matched.
// ErrUnmatchedPayment is returned when every reference key missed.
func (m *OrderMatcher) Match(ev *PaymentEvent) (*models.Order, string, error) {
	if ev.OrderPublicID != "" {
		order, err := m.orders.GetByPublicID(ev.OrderPublicID)
		if err == nil {
			return order, MatchByOrderPublicID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}

	if ev.CheckoutID != "" {
		order, err := m.orders.GetByCheckoutID(ev.CheckoutID)
		if err == nil {
			return order, MatchByCheckoutID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}

	// Renewal payments carry no checkout reference. They are matched via the
	// external reference a prior transaction recorded on the order, or via a
	// prior transaction row itself.
	if ev.PriorTransactionID != "" {
		order, err := m.orders.GetByExternalReference(ev.PriorTransactionID)
		if err == nil {
			return order, MatchByExternalRef, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}

		order, err = m.orders.GetByTransactionExternalID(m.provider, ev.PriorTransactionID)
		if err == nil {
			return order, MatchByExternalRef, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}

	return nil, "", ErrUnmatchedPayment
}
