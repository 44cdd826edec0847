package models

import "time"

// MediaBuy status machine. Terminal branches are Paused and Failed; the
// happy path runs PendingActivation -> Scheduled -> Active -> Completed.
const (
	MediaBuyStatusPendingActivation = "pending_activation"
	MediaBuyStatusScheduled         = "scheduled"
	MediaBuyStatusActive            = "active"
	MediaBuyStatusCompleted         = "completed"
	MediaBuyStatusPaused            = "paused"
	MediaBuyStatusFailed            = "failed"
)

// AsapStartTime is the literal value start_time may carry instead of a
// timezone-aware datetime.
const AsapStartTime = "asap"

// validMediaBuyStatuses backs IsValidMediaBuyStatus.
var validMediaBuyStatuses = map[string]bool{
	MediaBuyStatusPendingActivation: true,
	MediaBuyStatusScheduled:         true,
	MediaBuyStatusActive:            true,
	MediaBuyStatusCompleted:         true,
	MediaBuyStatusPaused:            true,
	MediaBuyStatusFailed:            true,
}

// IsValidMediaBuyStatus reports whether status is one of the six MediaBuy
// lifecycle statuses. A status_filter value outside this set must be
// rejected rather than silently matching nothing.
func IsValidMediaBuyStatus(status string) bool {
	return validMediaBuyStatuses[status]
}

// MediaBuy is a confirmed purchase spanning one or more MediaPackages.
// RawRequest retains the original create_media_buy payload so webhook
// delivery and re-derivation don't need to reconstruct it from relational
// state.
type MediaBuy struct {
	MediaBuyID string    `json:"media_buy_id"`
	BuyerRef   string    `json:"buyer_ref"`
	PrincipalID string   `json:"-"`
	TenantID   string    `json:"-"`
	StartTime  string    `json:"start_time"` // RFC3339 datetime, or the literal "asap"
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	RawRequest []byte    `json:"-"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// IsAsapStart reports whether the media buy's start_time is the literal
// "asap" sentinel rather than a concrete datetime.
func (m MediaBuy) IsAsapStart() bool {
	return m.StartTime == AsapStartTime
}

// MediaPackage is one line-item within a MediaBuy, identified by
// (MediaBuyID, PackageID). PackageConfig retains a backward-compatible JSON
// projection of the typed fields below, dual-written on every update.
type MediaPackage struct {
	MediaBuyID     string   `json:"media_buy_id"`
	PackageID      string   `json:"package_id"`
	ProductID      string   `json:"product_id"`
	BuyerRef       string   `json:"buyer_ref"`
	PricingOptionID string `json:"pricing_option_id,omitempty"`
	Budget         float64  `json:"budget"`
	Currency       string   `json:"currency"`
	BidPrice       *float64 `json:"bid_price,omitempty"`
	Pacing         *string  `json:"pacing,omitempty"`
	PackageConfig  []byte   `json:"-"`
}

// WorkflowStep statuses.
const (
	WorkflowStepStatusPending          = "pending"
	WorkflowStepStatusInProgress       = "in_progress"
	WorkflowStepStatusRequiresApproval = "requires_approval"
	WorkflowStepStatusCompleted        = "completed"
	WorkflowStepStatusFailed           = "failed"
)

// WorkflowStep records a human-in-the-loop or async task, linked to a
// business object (typically a MediaBuy) via ObjectWorkflowMapping.
type WorkflowStep struct {
	StepID       string    `json:"step_id"`
	ContextID    string    `json:"context_id"`
	TenantID     string    `json:"-"`
	ToolName     string    `json:"tool_name"`
	StepType     string    `json:"step_type"`
	Status       string    `json:"status"`
	Owner        string    `json:"owner,omitempty"`
	RequestData  []byte    `json:"request_data,omitempty"`
	ResponseData []byte    `json:"response_data,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ObjectWorkflowMapping links a WorkflowStep to the business object it
// gates, e.g. a media buy awaiting manual approval.
type ObjectWorkflowMapping struct {
	StepID     string `json:"step_id"`
	ObjectType string `json:"object_type"` // "media_buy" | "creative"
	ObjectID   string `json:"object_id"`
}
