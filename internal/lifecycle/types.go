// Package lifecycle implements the media-buy lifecycle engine: validating
// a create/update request, resolving products and pricing, dispatching to
// the tenant's adapter, and persisting the atomic result.
package lifecycle

import (
	"time"

	"github.com/advelops/adcp-salesagent/internal/schema"
)

// PackageRequest is one package within a CreateMediaBuyRequest.
type PackageRequest struct {
	ProductID       string        `json:"product_id"`
	BuyerRef        string        `json:"buyer_ref,omitempty"`
	PricingOptionID string        `json:"pricing_option_id,omitempty"`
	PricingModel    string        `json:"pricing_model,omitempty"`
	BidPrice        *float64      `json:"bid_price,omitempty"`
	Budget          schema.Budget `json:"budget"`
	Pacing          *string       `json:"pacing,omitempty"`
	CreativeIDs     []string      `json:"creative_ids,omitempty"`
}

// CreateMediaBuyRequest is the inbound create_media_buy envelope.
type CreateMediaBuyRequest struct {
	BuyerRef         string           `json:"buyer_ref"`
	BrandManifest    any              `json:"brand_manifest"`
	Packages         []PackageRequest `json:"packages"`
	StartTime        string           `json:"start_time"`
	EndTime          string           `json:"end_time"`
	PONumber         string           `json:"po_number,omitempty"`
	ReportingWebhook *ReportingWebhook `json:"reporting_webhook,omitempty"`
	CampaignCurrency string           `json:"currency,omitempty"`
}

// ReportingWebhook is the buyer's requested delivery-report destination.
type ReportingWebhook struct {
	URL            string          `json:"url"`
	Frequency      string          `json:"frequency"`
	Authentication *WebhookAuth    `json:"authentication,omitempty"`
}

// WebhookAuth carries inline credentials for an ephemeral push config when
// no registered PushNotificationConfig matches.
type WebhookAuth struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// PackageResponse is one package as returned by an adapter's
// create/update_media_buy success response.
type PackageResponse struct {
	PackageID         string   `json:"package_id"`
	Paused            bool     `json:"paused"`
	CreativeIDs       []string `json:"creative_ids,omitempty"`
	CreativeAssignments []string `json:"creative_assignments,omitempty"`
}

// CreateMediaBuyResponse is the success shape of create_media_buy.
type CreateMediaBuyResponse struct {
	MediaBuyID      string            `json:"media_buy_id"`
	BuyerRef        string            `json:"buyer_ref"`
	Packages        []PackageResponse `json:"packages"`
	CreativeDeadline *time.Time       `json:"creative_deadline,omitempty"`
}

// UpdateMediaBuyRequest carries exactly one of MediaBuyID or BuyerRef,
// enforced at the protocol boundary; both may be set internally for
// lookups.
type UpdateMediaBuyRequest struct {
	MediaBuyID      string                  `json:"media_buy_id,omitempty"`
	BuyerRef        string                  `json:"buyer_ref,omitempty"`
	Paused          *bool                   `json:"paused,omitempty"`
	StartTime       string                  `json:"start_time,omitempty"`
	EndTime         string                  `json:"end_time,omitempty"`
	Budget          *schema.Budget          `json:"budget,omitempty"`
	PackageUpdates  []PackageUpdateRequest  `json:"packages,omitempty"`
}

// PackageUpdateRequest is a per-package delta within an update request.
type PackageUpdateRequest struct {
	PackageID string         `json:"package_id"`
	Budget    *schema.Budget `json:"budget,omitempty"`
	Paused    *bool          `json:"paused,omitempty"`
}
