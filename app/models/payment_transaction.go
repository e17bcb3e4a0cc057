package models

import "time"

const (
	PaymentProviderClerk  = "clerk"
	PaymentProviderManual = "manual"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusSucceeded = "succeeded"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
	TransactionStatusCanceled  = "canceled"
)

// PaymentTransaction records a single provider-side payment attempt and links
// it to a local order. One row exists per (provider, external_id, order).
type PaymentTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        *uint     `gorm:"index;index:ux_transactions_provider_external,unique,priority:3" json:"order_id,omitempty"`
	SubscriptionID *uint     `gorm:"index" json:"subscription_id,omitempty"`
	Provider       string    `gorm:"type:varchar(24);not null;default:'clerk';index:ux_transactions_provider_external,unique,priority:1" json:"provider"`
	ExternalID     string    `gorm:"type:varchar(128);not null;default:'';index:ux_transactions_provider_external,unique,priority:2;index" json:"external_id"`
	Status         string    `gorm:"type:varchar(24);not null;default:'pending';index" json:"status"`
	AmountCents    int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency       string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	RawPayloadJSON string    `gorm:"type:longtext" json:"-"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
