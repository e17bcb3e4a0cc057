package models

import "time"

const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusPaused     = "paused"
	SubscriptionStatusCanceled   = "canceled"
)

// Subscription mirrors a provider-side recurring billing agreement. After the
// first charge its lifecycle is driven only by verified webhook events.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	ProductID              *uint      `gorm:"index" json:"product_id,omitempty"`
	Product                *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PriceID                *uint      `gorm:"index" json:"price_id,omitempty"`
	Price                  *Price     `gorm:"foreignKey:PriceID" json:"price,omitempty"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'incomplete';index:idx_subscriptions_user_status,priority:2" json:"status"`
	ProviderSubscriptionID string     `gorm:"type:varchar(128);default:null;uniqueIndex" json:"provider_subscription_id"`
	SourceOrderPublicID    string     `gorm:"type:varchar(36);default:'';index" json:"source_order_public_id,omitempty"`
	SourceOrderItemID      *uint      `gorm:"index" json:"source_order_item_id,omitempty"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	LastEventAt            *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	RawPayloadJSON         string     `gorm:"type:longtext" json:"-"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// subscriptionTransitions mirrors the provider lifecycle. A canceled
// subscription is never resurrected by a late-arriving event.
var subscriptionTransitions = map[string][]string{
	SubscriptionStatusIncomplete: {SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusTrialing:   {SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusPaused, SubscriptionStatusCanceled},
	SubscriptionStatusActive:     {SubscriptionStatusPastDue, SubscriptionStatusPaused, SubscriptionStatusCanceled},
	SubscriptionStatusPastDue:    {SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusPaused:     {SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusCanceled:   {},
}

// SubscriptionCanTransition reports whether the target status is reachable
// from the current one. Same-status refreshes are allowed so period updates
// from repeated events can apply.
func SubscriptionCanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range subscriptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SubscriptionStatusEntitles reports whether a status grants plan features.
func SubscriptionStatusEntitles(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
