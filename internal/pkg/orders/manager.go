package orders

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
)

var (
	// ErrIllegalTransition is returned when a requested status change is not
	// reachable from the order's current status.
	ErrIllegalTransition = errors.New("illegal order status transition")

	// ErrEmptyOrder is returned when an order is created without items.
	ErrEmptyOrder = errors.New("order has no items")
)

// Line is one requested order position at checkout time.
type Line struct {
	ProductID uint
	PriceID   uint
	Quantity  int
}

// PaymentInfo carries the transaction facts recorded while confirming or
// failing an order.
type PaymentInfo struct {
	Provider          string
	ExternalID        string
	Status            string
	AmountCents       int64
	Currency          string
	CheckoutID        string
	ExternalReference string
	RawPayloadJSON    string
	At                time.Time
}

// Manager owns the order state machine. All status movement goes through
// conditional updates so concurrent confirmations of the same order serialize
// on the row itself.
type Manager struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
}

// NewManager creates an order manager.
func NewManager(orders repository.OrderRepository, catalog repository.CatalogRepository) *Manager {
	return &Manager{orders: orders, catalog: catalog}
}

// CreatePending builds an order in pending_payment from catalog lines.
// Product and price data is snapshotted onto the items so later catalog edits
// cannot change what was sold.
func (m *Manager) CreatePending(userID uint, currency string, lines []Line) (*models.Order, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	order := &models.Order{
		UserID:   userID,
		Status:   models.OrderStatusPendingPayment,
		Currency: currency,
	}

	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}

		price, err := m.catalog.GetPriceByID(line.PriceID)
		if err != nil {
			return nil, fmt.Errorf("price %d: %w", line.PriceID, err)
		}
		if price.Product == nil || price.Product.ID != line.ProductID {
			return nil, fmt.Errorf("price %d does not belong to product %d", line.PriceID, line.ProductID)
		}
		if !price.IsActive || price.Product.Visibility != models.VisibilityPublished {
			return nil, fmt.Errorf("product %d is not purchasable", line.ProductID)
		}

		priceID := price.ID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:           price.Product.ID,
			PriceID:             &priceID,
			Quantity:            qty,
			UnitAmountCents:     price.AmountCents,
			TotalAmountCents:    price.AmountCents * int64(qty),
			ProductNameSnapshot: price.Product.Name,
			PriceNameSnapshot:   price.Name,
		})
		order.SubtotalCents += price.AmountCents * int64(qty)
	}
	order.TotalCents = order.SubtotalCents + order.TaxCents

	if err := m.orders.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmPayment records the successful transaction and moves the order to
// paid. Returns confirmed=false without error when the order was already
// paid or fulfilled, which callers treat as a duplicate delivery.
func (m *Manager) ConfirmPayment(order *models.Order, info PaymentInfo) (bool, error) {
	if err := m.recordTransaction(order, info, models.TransactionStatusSucceeded); err != nil {
		return false, err
	}

	if info.CheckoutID != "" || info.ExternalReference != "" {
		if err := m.orders.SetPaymentReferences(order.ID, info.CheckoutID, info.ExternalReference); err != nil {
			return false, err
		}
	}

	moved, err := m.orders.TransitionStatus(order.ID, []string{models.OrderStatusPendingPayment}, models.OrderStatusPaid, info.At)
	if err != nil {
		return false, err
	}
	if moved {
		order.Status = models.OrderStatusPaid
		paidAt := info.At
		order.PaidAt = &paidAt
		return true, nil
	}

	// The conditional update missed. Re-read to tell a duplicate delivery
	// apart from a payment landing on a canceled order.
	current, err := m.orders.GetByID(order.ID)
	if err != nil {
		return false, err
	}
	switch current.Status {
	case models.OrderStatusPaid, models.OrderStatusFulfilled:
		return false, nil
	default:
		log.Printf("order %s: payment %s succeeded but order is %s", current.PublicID, info.ExternalID, current.Status)
		return false, ErrIllegalTransition
	}
}

// ApplyPaymentFailure records the failed transaction and cancels the order if
// it was still awaiting payment. A failure arriving after a success is
// recorded but does not move the order.
func (m *Manager) ApplyPaymentFailure(order *models.Order, info PaymentInfo) error {
	if err := m.recordTransaction(order, info, models.TransactionStatusFailed); err != nil {
		return err
	}
	_, err := m.orders.TransitionStatus(order.ID, []string{models.OrderStatusPendingPayment}, models.OrderStatusCanceled, info.At)
	return err
}

// ApplyRefund records the refund transaction and moves a paid order to
// failed. Refunds on fulfilled orders are recorded for review but leave the
// terminal status alone.
func (m *Manager) ApplyRefund(order *models.Order, info PaymentInfo) error {
	if err := m.recordTransaction(order, info, models.TransactionStatusRefunded); err != nil {
		return err
	}
	moved, err := m.orders.TransitionStatus(order.ID, []string{models.OrderStatusPaid}, models.OrderStatusFailed, info.At)
	if err != nil {
		return err
	}
	if !moved && order.Status == models.OrderStatusFulfilled {
		log.Printf("order %s: refund %s arrived after fulfillment, needs review", order.PublicID, info.ExternalID)
	}
	return nil
}

// Cancel abandons an order that has not been paid.
func (m *Manager) Cancel(order *models.Order, at time.Time) error {
	moved, err := m.orders.TransitionStatus(order.ID, []string{models.OrderStatusPendingPayment}, models.OrderStatusCanceled, at)
	if err != nil {
		return err
	}
	if !moved {
		if order.Status == models.OrderStatusCanceled {
			return nil
		}
		return ErrIllegalTransition
	}
	return nil
}

// Reload re-reads an order with items, products and prices preloaded.
func (m *Manager) Reload(orderID uint) (*models.Order, error) {
	return m.orders.GetByID(orderID)
}

// MarkFulfilled moves a paid order to fulfilled. Returns false when the order
// was not in paid, which the fulfillment engine treats as already done.
func (m *Manager) MarkFulfilled(orderID uint, at time.Time) (bool, error) {
	return m.orders.TransitionStatus(orderID, []string{models.OrderStatusPaid}, models.OrderStatusFulfilled, at)
}

func (m *Manager) recordTransaction(order *models.Order, info PaymentInfo, status string) error {
	if info.ExternalID == "" {
		return errors.New("transaction external id is required")
	}
	orderID := order.ID
	txn := &models.PaymentTransaction{
		OrderID:        &orderID,
		Provider:       info.Provider,
		ExternalID:     info.ExternalID,
		Status:         status,
		AmountCents:    info.AmountCents,
		Currency:       info.Currency,
		RawPayloadJSON: info.RawPayloadJSON,
	}
	if txn.Currency == "" {
		txn.Currency = order.Currency
	}
	return m.orders.UpsertTransaction(txn)
}
