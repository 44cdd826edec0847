package models

import "time"

// Webhook delivery notification types.
const (
	NotificationTypeScheduled = "scheduled"
	NotificationTypeTriggered = "triggered"
	NotificationTypeFinal     = "final"

	WebhookDeliveryStatusDelivered = "delivered"
	WebhookDeliveryStatusFailed    = "failed"
	WebhookDeliveryStatusSkipped   = "skipped"
)

// WebhookDeliveryLog is a per-attempt delivery record. SequenceNumber is
// monotonic per (MediaBuyID, TaskType), assigned as MAX(sequence_number)+1
// at insert time so retries and reorderings remain distinguishable.
type WebhookDeliveryLog struct {
	ID               int64     `json:"id"`
	MediaBuyID       string    `json:"media_buy_id"`
	TaskType         string    `json:"task_type"`
	NotificationType string    `json:"notification_type"`
	SequenceNumber   int       `json:"sequence_number"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// PushNotificationConfig is a registered webhook endpoint scoped by
// (tenant, principal).
type PushNotificationConfig struct {
	TenantID             string `json:"-"`
	PrincipalID          string `json:"-"`
	URL                  string `json:"url"`
	AuthenticationType   string `json:"authentication_type"`
	AuthenticationToken  string `json:"authentication_token,omitempty"`
	IsActive             bool   `json:"is_active"`
}
