package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellforge/sellforge/app/models"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) withItems() *gorm.DB {
	return r.db.
		Preload("User").
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Product.Assets").
		Preload("Items.Product.ServiceOffer").
		Preload("Items.Price")
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withItems().First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByPublicID(publicID string) (*models.Order, error) {
	var order models.Order
	if err := r.withItems().Where("public_id = ?", publicID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByCheckoutID(checkoutID string) (*models.Order, error) {
	if checkoutID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.Order
	if err := r.withItems().Where("checkout_id = ?", checkoutID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByExternalReference(ref string) (*models.Order, error) {
	if ref == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.Order
	if err := r.withItems().Where("external_reference = ?", ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByTransactionExternalID(provider, externalID string) (*models.Order, error) {
	if externalID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var txn models.PaymentTransaction
	err := r.db.Where("provider = ? AND external_id = ?", provider, externalID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.OrderID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(*txn.OrderID)
}

func (r *orderRepository) ListByUser(userID uint, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.withItems().
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	return orders, err
}

// TransitionStatus performs a conditional update so concurrent events touching
// the same order serialize on the row without a broad lock. Timestamp columns
// are stamped according to the target status.
func (r *orderRepository) TransitionStatus(orderID uint, from []string, to string, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("at least one expected predecessor status is required")
	}

	updates := map[string]interface{}{"status": to}
	switch to {
	case models.OrderStatusPaid:
		updates["paid_at"] = &at
	case models.OrderStatusFulfilled:
		updates["fulfilled_at"] = &at
	case models.OrderStatusCanceled:
		updates["canceled_at"] = &at
	}

	tx := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) SetPaymentReferences(orderID uint, checkoutID, externalReference string) error {
	updates := map[string]interface{}{}
	if checkoutID != "" {
		updates["checkout_id"] = checkoutID
	}
	if externalReference != "" {
		updates["external_reference"] = externalReference
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error
}

func (r *orderRepository) UpsertTransaction(txn *models.PaymentTransaction) error {
	if txn.ExternalID == "" {
		return r.db.Create(txn).Error
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "external_id"},
			{Name: "order_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"amount_cents",
			"currency",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(txn).Error; err != nil {
		return err
	}

	return r.db.Where("provider = ? AND external_id = ?", txn.Provider, txn.ExternalID).
		First(txn).Error
}

func (r *orderRepository) GetTransaction(provider, externalID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("provider = ? AND external_id = ?", provider, externalID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
