package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByExternalCustomerID(externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	if err := r.db.Where("external_customer_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("api_key_hash = ?", hash).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpsertByExternalCustomerID(user *models.User) error {
	var existing models.User
	err := r.db.Where("external_customer_id = ?", user.ExternalCustomerID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.Create(user).Error
		}
		return err
	}

	existing.Name = user.Name
	existing.Email = user.Email
	existing.BillingEmail = user.BillingEmail
	existing.Status = user.Status
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*user = existing
	return nil
}

func (r *userRepository) DeactivateByExternalCustomerID(externalID string) error {
	return r.db.Model(&models.User{}).
		Where("external_customer_id = ?", externalID).
		Update("status", models.STATUS_DISABLED).Error
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *userRepository) TouchAPIKeyUsage(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("api_key_last_used_at", &at).Error
}
