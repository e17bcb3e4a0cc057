package models

import "time"

// DigitalAsset is a downloadable file attached to a digital product.
// Placeholder assets created for not-yet-delivered work carry IsPending=true
// and stay inactive until a seller uploads the real deliverable.
type DigitalAsset struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProductID      uint      `gorm:"not null;index:ux_assets_product_path,unique,priority:1" json:"product_id"`
	Title          string    `gorm:"type:varchar(180);not null" json:"title"`
	FilePath       string    `gorm:"type:varchar(420);not null;index:ux_assets_product_path,unique,priority:2" json:"file_path"`
	FileSizeBytes  int64     `gorm:"default:0" json:"file_size_bytes"`
	ChecksumSHA256 string    `gorm:"type:varchar(64);default:''" json:"checksum_sha256"`
	VersionLabel   string    `gorm:"type:varchar(40);default:''" json:"version_label"`
	DownloadCount  int64     `gorm:"default:0" json:"download_count"`
	IsActive       bool      `gorm:"default:true;index" json:"is_active"`
	IsPending      bool      `gorm:"default:false;index" json:"is_pending"`
	PendingReason  string    `gorm:"type:varchar(64);default:''" json:"pending_reason,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
