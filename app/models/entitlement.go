package models

import "time"

const (
	EntitlementSourcePlan     = "plan"
	EntitlementSourcePurchase = "purchase"
	EntitlementSourceManual   = "manual"
)

// Entitlement records that an account has (or had) access to a named feature.
// History is kept: multiple rows may exist per (user, feature_key), but the
// fulfillment engine keeps at most one with IsCurrent=true.
type Entitlement struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index:ux_entitlements_source,unique,priority:1;index:idx_entitlements_user_current,priority:1" json:"user_id"`
	FeatureKey      string     `gorm:"type:varchar(80);not null;index:ux_entitlements_source,unique,priority:2;index:idx_entitlements_user_current,priority:2" json:"feature_key"`
	SourceType      string     `gorm:"type:varchar(24);not null;default:'purchase';index:ux_entitlements_source,unique,priority:3" json:"source_type"`
	SourceReference string     `gorm:"type:varchar(128);not null;default:'';index:ux_entitlements_source,unique,priority:4" json:"source_reference"`
	IsCurrent       bool       `gorm:"default:true;index:idx_entitlements_user_current,priority:3" json:"is_current"`
	GrantedAt       time.Time  `gorm:"autoCreateTime" json:"granted_at"`
	EndedAt         *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
