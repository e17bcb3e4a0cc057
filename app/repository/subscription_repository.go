package repository

import (
	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(providerSubscriptionID string) (*models.Subscription, error) {
	if providerSubscriptionID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var sub models.Subscription
	err := r.db.
		Preload("Product").
		Preload("Price").
		Where("provider_subscription_id = ?", providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ExistsForOrderItem(orderItemID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("source_order_item_id = ?", orderItemID).
		Count(&count).Error
	return count > 0, err
}

func (r *subscriptionRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Preload("Product").
		Preload("Price").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&subs).Error
	return subs, err
}
