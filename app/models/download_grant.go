package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DownloadGrant gives a buyer time- and count-limited access to one digital
// asset of a paid order item. Created exactly once per (order_item, asset);
// webhook replay never mutates an existing grant.
type DownloadGrant struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Token            string        `gorm:"type:varchar(36);not null;uniqueIndex" json:"token"`
	UserID           uint          `gorm:"not null;index" json:"user_id"`
	OrderItemID      uint          `gorm:"not null;index:ux_grants_item_asset,unique,priority:1" json:"order_item_id"`
	AssetID          uint          `gorm:"not null;index:ux_grants_item_asset,unique,priority:2" json:"asset_id"`
	Asset            *DigitalAsset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	ExpiresAt        *time.Time    `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	MaxDownloads     int           `gorm:"default:5" json:"max_downloads"`
	DownloadCount    int           `gorm:"default:0" json:"download_count"`
	LastDownloadedAt *time.Time    `gorm:"type:timestamp;default:null" json:"last_downloaded_at,omitempty"`
	IsActive         bool          `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *DownloadGrant) BeforeCreate(tx *gorm.DB) error {
	if g.Token == "" {
		g.Token = uuid.New().String()
	}
	return nil
}

// CanDownload reports whether the grant still allows a download.
func (g *DownloadGrant) CanDownload(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return false
	}
	if g.MaxDownloads > 0 && g.DownloadCount >= g.MaxDownloads {
		return false
	}
	return true
}
