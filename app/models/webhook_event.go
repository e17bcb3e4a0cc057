package models

import "time"

const (
	WebhookProviderClerk = "clerk"
)

const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
	WebhookStatusIgnored   = "ignored"
	WebhookStatusUnmatched = "unmatched"
	WebhookStatusFailed    = "failed"
)

// WebhookEvent stores every inbound provider webhook with deduplication
// metadata. The unique (provider, provider_event_id) index is the source of
// idempotency truth; rows are never deleted.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status          string     `gorm:"type:varchar(24);not null;default:'received';index" json:"status"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	ReceivedAt      time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
