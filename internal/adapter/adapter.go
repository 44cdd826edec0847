// Package adapter defines the publisher ad-server adapter contract and its
// implementations (mock, Google Ad Manager, Kevel, Triton). Every adapter
// implements the same capability set; callers dispatch through
// internal/adapter/dispatch for circuit breaking, rate limiting, and
// timeout enforcement.
package adapter

import (
	"context"
	"time"

	"github.com/advelops/adcp-salesagent/internal/models"
)

// TargetingAccess classifies a targeting dimension by who may set it.
type TargetingAccess string

const (
	// AccessOverlay dimensions are buyer-settable in the request.
	AccessOverlay TargetingAccess = "overlay"
	// AccessManagedOnly dimensions are platform-signal-only; a buyer
	// request that sets one of these must fail loudly rather than have
	// it silently dropped.
	AccessManagedOnly TargetingAccess = "managed_only"
)

// TargetingCapabilities describes, per adapter, which targeting dimensions
// are overlay vs managed_only. AEE/AXE signal dimensions are always
// managed_only regardless of what an adapter reports here; see
// NegotiateTargeting.
type TargetingCapabilities map[string]TargetingAccess

// alwaysManagedOnly lists targeting dimensions that are managed_only on
// every adapter, never buyer-overridable.
var alwaysManagedOnly = map[string]bool{
	"aee_segment":     true,
	"aee_score":       true,
	"aee_context":     true,
	"key_value_pairs": true,
}

// NegotiateTargeting checks a requested targeting overlay against an
// adapter's declared capabilities. It returns the dimension names that
// violate managed_only access; callers must fail the request with
// "Cannot fulfill buyer contract" when any are returned rather than
// silently dropping them.
func NegotiateTargeting(caps TargetingCapabilities, requestedOverlay map[string]any) []string {
	var violations []string
	for dim := range requestedOverlay {
		if alwaysManagedOnly[dim] {
			violations = append(violations, dim)
			continue
		}
		if access, ok := caps[dim]; ok && access == AccessManagedOnly {
			violations = append(violations, dim)
		}
	}
	return violations
}

// CreateRequest is the adapter-facing view of a create_media_buy call: a
// media buy plus the packages it was created with.
type CreateRequest struct {
	MediaBuy         models.MediaBuy
	Packages         []models.MediaPackage
	RequestedOverlay map[string]any
	Dispatch         DispatchOptions
}

// UpdateRequest is the adapter-facing view of an update_media_buy call.
type UpdateRequest struct {
	MediaBuy         models.MediaBuy
	Packages         []models.MediaPackage
	RequestedOverlay map[string]any
	Dispatch         DispatchOptions
}

// DispatchOptions carries per-call context that isn't part of the domain
// request itself: the testing/dry-run flag.
type DispatchOptions struct {
	DryRun bool
}

// CreativeUpload is one creative dispatched for upload.
type CreativeUpload struct {
	CreativeID       string
	PlatformCreative string
}

// DeliveryRequest asks an adapter for delivery metrics over a date range.
type DeliveryRequest struct {
	MediaBuyIDs []string
	BuyerRefs   []string
	StartDate   time.Time
	EndDate     time.Time
	DryRun      bool
}

// DeliveryResponse carries per-media-buy delivery rows.
type DeliveryResponse struct {
	Rows []DeliveryRow
}

// DeliveryRow is one media buy's delivery metrics for the requested range.
type DeliveryRow struct {
	MediaBuyID  string  `json:"media_buy_id"`
	BuyerRef    string  `json:"buyer_ref,omitempty"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Currency    string  `json:"currency"`
}

// Capability is the full set of operations an adapter implementation must
// provide. Concrete adapters (mock, gam, kevel, triton) implement this
// interface; internal/adapter/dispatch wraps it with resilience.
type Capability interface {
	Name() string
	Targeting() TargetingCapabilities
	CreateMediaBuy(ctx context.Context, req CreateRequest) (Result, error)
	UpdateMediaBuy(ctx context.Context, req UpdateRequest) (Result, error)
	UploadCreatives(ctx context.Context, tenantID string, creatives []models.Creative) ([]CreativeUpload, error)
	GetMediaBuyDelivery(ctx context.Context, req DeliveryRequest) (DeliveryResponse, error)
	Discovery
}

// Result is an adapter's outcome for a create/update call: either it
// activated immediately, or it requires a WorkflowStep for human
// confirmation.
type Result struct {
	Activated        bool
	RequiresApproval bool
	PlatformOrderID  string
	Message          string
}

// ShouldAutoActivate implements the line-item-type automation policy: it
// reports true only when the product's line item type is non-guaranteed AND
// the automation mode is "automatic"; guaranteed types, or non-guaranteed
// with confirmation_required/manual, report false. The bundled adapters
// (mock, gam, kevel, triton) do not call it: their CreateMediaBuy and
// UpdateMediaBuy report Activated regardless of line item type or
// automation mode.
func ShouldAutoActivate(lineItemType, automationMode string) bool {
	if !isNonGuaranteedLineItemType(lineItemType) {
		return false
	}
	return automationMode == AutomationAutomatic
}

// Line item types recognized across adapters. STANDARD and SPONSORSHIP are
// guaranteed; the other four are non-guaranteed (see
// isNonGuaranteedLineItemType).
const (
	LineItemTypeStandard       = "STANDARD"
	LineItemTypeSponsorship    = "SPONSORSHIP"
	LineItemTypeNetwork        = "NETWORK"
	LineItemTypeHouse          = "HOUSE"
	LineItemTypePricePriority  = "PRICE_PRIORITY"
	LineItemTypeBulk           = "BULK"
)

// Automation modes for non_guaranteed_automation.
const (
	AutomationAutomatic           = "automatic"
	AutomationConfirmationRequired = "confirmation_required"
	AutomationManual              = "manual"
)

func isNonGuaranteedLineItemType(t string) bool {
	switch t {
	case LineItemTypeNetwork, LineItemTypeHouse, LineItemTypePricePriority, LineItemTypeBulk:
		return true
	default:
		return false
	}
}
