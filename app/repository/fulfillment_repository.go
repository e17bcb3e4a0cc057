package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellforge/sellforge/app/models"
)

type fulfillmentRepository struct {
	db *gorm.DB
}

// NewFulfillmentRepository creates a fulfillment repository backed by GORM.
func NewFulfillmentRepository(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepository{db: db}
}

func (r *fulfillmentRepository) CreateGrantIfNotExists(grant *models.DownloadGrant) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "order_item_id"},
			{Name: "asset_id"},
		},
		DoNothing: true,
	}).Create(grant)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}
	// Replay path: read back the winner so callers see the real token.
	err := r.db.Where("order_item_id = ? AND asset_id = ?", grant.OrderItemID, grant.AssetID).
		First(grant).Error
	return false, err
}

func (r *fulfillmentRepository) GetGrantByToken(token string) (*models.DownloadGrant, error) {
	var grant models.DownloadGrant
	err := r.db.Preload("Asset").Where("token = ?", token).First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *fulfillmentRepository) ListGrantsByUser(userID uint) ([]models.DownloadGrant, error) {
	var grants []models.DownloadGrant
	err := r.db.Preload("Asset").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&grants).Error
	return grants, err
}

func (r *fulfillmentRepository) RegisterDownload(grantID uint, at time.Time) error {
	return r.db.Model(&models.DownloadGrant{}).
		Where("id = ?", grantID).
		Updates(map[string]interface{}{
			"download_count":     gorm.Expr("download_count + 1"),
			"last_downloaded_at": &at,
		}).Error
}

func (r *fulfillmentRepository) CreateAsset(asset *models.DigitalAsset) error {
	return r.db.Create(asset).Error
}

func (r *fulfillmentRepository) CountPendingGrantsForItem(orderItemID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.DownloadGrant{}).
		Joins("JOIN digital_assets ON digital_assets.id = download_grants.asset_id").
		Where("download_grants.order_item_id = ? AND digital_assets.is_pending = ?", orderItemID, true).
		Count(&count).Error
	return count, err
}

func (r *fulfillmentRepository) CreateBooking(booking *models.Booking) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "order_item_id"},
			{Name: "sequence"},
		},
		DoNothing: true,
	}).Create(booking).Error
}

func (r *fulfillmentRepository) CountBookingsForItem(orderItemID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("order_item_id = ?", orderItemID).
		Count(&count).Error
	return count, err
}

func (r *fulfillmentRepository) ListBookingsByUser(userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *fulfillmentRepository) CreateEntitlementIfNotExists(ent *models.Entitlement) (bool, *models.Entitlement, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "feature_key"},
			{Name: "source_type"},
			{Name: "source_reference"},
		},
		DoNothing: true,
	}).Create(ent)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Entitlement
	err := r.db.Where(
		"user_id = ? AND feature_key = ? AND source_type = ? AND source_reference = ?",
		ent.UserID, ent.FeatureKey, ent.SourceType, ent.SourceReference,
	).First(&stored).Error
	if err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *fulfillmentRepository) SaveEntitlement(ent *models.Entitlement) error {
	return r.db.Save(ent).Error
}

func (r *fulfillmentRepository) DeactivateCurrentEntitlements(userID uint, featureKey string, excludeID uint, at time.Time) error {
	q := r.db.Model(&models.Entitlement{}).
		Where("user_id = ? AND feature_key = ? AND is_current = ?", userID, featureKey, true)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Updates(map[string]interface{}{
		"is_current": false,
		"ended_at":   &at,
	}).Error
}

func (r *fulfillmentRepository) ListEntitlementsBySource(userID uint, sourceType, sourceReference string) ([]models.Entitlement, error) {
	var ents []models.Entitlement
	err := r.db.
		Where("user_id = ? AND source_type = ? AND source_reference = ?", userID, sourceType, sourceReference).
		Find(&ents).Error
	return ents, err
}

func (r *fulfillmentRepository) ListEntitlementsByUser(userID uint, currentOnly bool) ([]models.Entitlement, error) {
	q := r.db.Where("user_id = ?", userID)
	if currentOnly {
		q = q.Where("is_current = ?", true)
	}
	var ents []models.Entitlement
	err := q.Order("feature_key").Find(&ents).Error
	return ents, err
}
