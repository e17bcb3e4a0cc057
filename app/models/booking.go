package models

import "time"

const (
	BookingStatusRequested = "requested"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCanceled  = "canceled"
)

// Booking is the work order created when a service-type product is paid for.
// One row exists per unit of quantity on the order item; Sequence makes the
// (order_item, sequence) pair unique so fulfillment replay cannot duplicate.
type Booking struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index:idx_bookings_user_status,priority:1" json:"user_id"`
	ServiceOfferID uint       `gorm:"not null;index" json:"service_offer_id"`
	OrderItemID    uint       `gorm:"not null;index:ux_bookings_item_sequence,unique,priority:1" json:"order_item_id"`
	Sequence       int        `gorm:"not null;default:1;index:ux_bookings_item_sequence,unique,priority:2" json:"sequence"`
	Status         string     `gorm:"type:varchar(24);not null;default:'requested';index:idx_bookings_user_status,priority:2" json:"status"`
	CustomerNotes  string     `gorm:"type:text" json:"customer_notes"`
	InternalNotes  string     `gorm:"type:text" json:"-"`
	DueAt          *time.Time `gorm:"type:timestamp;default:null" json:"due_at,omitempty"`
	ScheduledStart *time.Time `gorm:"type:timestamp;default:null" json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `gorm:"type:timestamp;default:null" json:"scheduled_end,omitempty"`
	CompletedAt    *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
