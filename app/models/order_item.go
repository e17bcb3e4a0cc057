package models

import "time"

// OrderItem snapshots product and price data at order-creation time so later
// catalog edits cannot retroactively change historical orders.
type OrderItem struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OrderID             uint      `gorm:"not null;index" json:"order_id"`
	ProductID           uint      `gorm:"not null;index" json:"product_id"`
	Product             *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PriceID             *uint     `gorm:"index" json:"price_id,omitempty"`
	Price               *Price    `gorm:"foreignKey:PriceID" json:"price,omitempty"`
	Quantity            int       `gorm:"not null;default:1" json:"quantity"`
	UnitAmountCents     int64     `gorm:"not null;default:0" json:"unit_amount_cents"`
	TotalAmountCents    int64     `gorm:"not null;default:0" json:"total_amount_cents"`
	ProductNameSnapshot string    `gorm:"type:varchar(180);default:''" json:"product_name_snapshot"`
	PriceNameSnapshot   string    `gorm:"type:varchar(120);default:''" json:"price_name_snapshot"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
