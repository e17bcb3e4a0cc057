package models

import "time"

const (
	BillingPeriodOneTime = "one_time"
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)

// Price is a purchasable variant of a product. Provider plan/price refs link
// it to the external billing provider's catalog.
type Price struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProductID       uint      `gorm:"not null;index" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Name            string    `gorm:"type:varchar(120);default:''" json:"name"`
	AmountCents     int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	BillingPeriod   string    `gorm:"type:varchar(20);not null;default:'one_time';index" json:"billing_period"`
	ProviderPlanID  string    `gorm:"type:varchar(128);default:'';index" json:"provider_plan_id"`
	ProviderPriceID string    `gorm:"type:varchar(128);default:'';index" json:"provider_price_id"`
	CheckoutURL     string    `gorm:"type:varchar(500);default:''" json:"checkout_url"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	IsDefault       bool      `gorm:"default:false" json:"is_default"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRecurring reports whether the price bills on a recurring period.
func (p *Price) IsRecurring() bool {
	return p.BillingPeriod == BillingPeriodMonthly || p.BillingPeriod == BillingPeriodYearly
}

// PeriodEnd computes the end of a billing period that starts at the given time.
// One-time prices have no period and return nil.
func (p *Price) PeriodEnd(start time.Time) *time.Time {
	var end time.Time
	switch p.BillingPeriod {
	case BillingPeriodMonthly:
		end = start.AddDate(0, 0, 30)
	case BillingPeriodYearly:
		end = start.AddDate(0, 0, 365)
	default:
		return nil
	}
	return &end
}
