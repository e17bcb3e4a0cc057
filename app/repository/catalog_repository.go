package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository backed by GORM.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetProductByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.
		Preload("Assets").
		Preload("ServiceOffer").
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepository) GetPriceByID(id uint) (*models.Price, error) {
	var price models.Price
	err := r.db.
		Preload("Product.Assets").
		Preload("Product.ServiceOffer").
		First(&price, id).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// GetPriceByProviderRef resolves a price from a provider price or plan
// identifier, whichever the payload carried. The price reference wins when
// both are present.
func (r *catalogRepository) GetPriceByProviderRef(providerPriceID, providerPlanID string) (*models.Price, error) {
	var price models.Price
	if providerPriceID != "" {
		err := r.db.
			Preload("Product.Assets").
			Preload("Product.ServiceOffer").
			Where("provider_price_id = ?", providerPriceID).
			First(&price).Error
		if err == nil {
			return &price, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := r.db.
		Preload("Product.Assets").
		Preload("Product.ServiceOffer").
		Where("provider_plan_id = ?", providerPlanID).
		First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *catalogRepository) GetAssetByID(id uint) (*models.DigitalAsset, error) {
	var asset models.DigitalAsset
	if err := r.db.First(&asset, id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *catalogRepository) GetServiceOfferByProductID(productID uint) (*models.ServiceOffer, error) {
	var offer models.ServiceOffer
	err := r.db.Where("product_id = ?", productID).First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}
