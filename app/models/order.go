package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusFulfilled      = "fulfilled"
	OrderStatusCanceled       = "canceled"
	OrderStatusFailed         = "failed"
)

// Order is the financial record of a checkout. Rows are never deleted; status
// only moves forward along the transition graph below.
type Order struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	PublicID          string      `gorm:"type:varchar(36);not null;uniqueIndex" json:"public_id"`
	UserID            uint        `gorm:"not null;index:idx_orders_user_status,priority:1" json:"user_id"`
	User              *User       `gorm:"foreignKey:UserID" json:"-"`
	Status            string      `gorm:"type:varchar(24);not null;default:'pending_payment';index:idx_orders_user_status,priority:2" json:"status"`
	Currency          string      `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	SubtotalCents     int64       `gorm:"not null;default:0" json:"subtotal_cents"`
	TaxCents          int64       `gorm:"not null;default:0" json:"tax_cents"`
	TotalCents        int64       `gorm:"not null;default:0" json:"total_cents"`
	Notes             string      `gorm:"type:text" json:"notes"`
	CheckoutID        string      `gorm:"type:varchar(128);default:'';index" json:"checkout_id"`
	ExternalReference string      `gorm:"type:varchar(128);default:'';index" json:"external_reference"`
	Items             []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	PaidAt            *time.Time  `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	FulfilledAt       *time.Time  `gorm:"type:timestamp;default:null" json:"fulfilled_at,omitempty"`
	CanceledAt        *time.Time  `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt         time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.PublicID == "" {
		o.PublicID = uuid.New().String()
	}
	return nil
}

// orderTransitions is the only legal movement through order statuses.
// Everything not listed is either a stale no-op or an illegal transition.
var orderTransitions = map[string][]string{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:           {OrderStatusFulfilled, OrderStatusFailed},
	OrderStatusFulfilled:      {},
	OrderStatusCanceled:       {},
	OrderStatusFailed:         {},
}

// OrderCanTransition reports whether an order may move from one status to
// another. Same-status "transitions" are not legal moves; callers treat them
// as idempotent no-ops.
func OrderCanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatusTerminal reports whether no further transitions exist.
func OrderStatusTerminal(status string) bool {
	next, ok := orderTransitions[status]
	return ok && len(next) == 0
}
