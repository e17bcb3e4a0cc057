package models

import (
	"strings"
	"time"
)

const (
	ProductTypeDigital = "digital"
	ProductTypeService = "service"
)

const (
	VisibilityDraft     = "draft"
	VisibilityPublished = "published"
	VisibilityArchived  = "archived"
)

// Product is a sellable offer. Digital products deliver files via download
// grants, service products create bookings at fulfillment time.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index:ux_products_owner_slug,unique,priority:1" json:"owner_id"`
	Name        string    `gorm:"type:varchar(180);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(200);not null;index:ux_products_owner_slug,unique,priority:2" json:"slug"`
	Tagline     string    `gorm:"type:varchar(240);default:''" json:"tagline"`
	Description string    `gorm:"type:text" json:"description"`
	ProductType string    `gorm:"type:varchar(24);not null;default:'digital';index" json:"product_type"`
	Visibility  string    `gorm:"type:varchar(24);not null;default:'draft';index" json:"visibility"`
	FeatureKeys []string  `gorm:"serializer:json" json:"feature_keys"`
	Assets      []DigitalAsset `gorm:"foreignKey:ProductID" json:"assets,omitempty"`
	ServiceOffer *ServiceOffer `gorm:"foreignKey:ProductID" json:"service_offer,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizedFeatureKeys returns the deduplicated, lowercased feature keys.
func (p *Product) NormalizedFeatureKeys() []string {
	seen := make(map[string]struct{}, len(p.FeatureKeys))
	out := make([]string, 0, len(p.FeatureKeys))
	for _, raw := range p.FeatureKeys {
		key := NormalizeFeatureKey(raw)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// ActiveAssets filters the preloaded assets down to active ones.
func (p *Product) ActiveAssets() []DigitalAsset {
	var out []DigitalAsset
	for _, asset := range p.Assets {
		if asset.IsActive {
			out = append(out, asset)
		}
	}
	return out
}

// NormalizeFeatureKey canonicalizes a feature key for entitlement lookups.
func NormalizeFeatureKey(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}
