package models

import "time"

// ServiceOffer holds delivery terms for a service-type product.
type ServiceOffer struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ProductID              uint      `gorm:"not null;uniqueIndex" json:"product_id"`
	SessionMinutes         int       `gorm:"default:60" json:"session_minutes"`
	DeliveryDays           int       `gorm:"default:7" json:"delivery_days"`
	RevisionCount          int       `gorm:"default:0" json:"revision_count"`
	OnboardingInstructions string    `gorm:"type:text" json:"onboarding_instructions"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
