package models

import (
	"strings"
	"time"
)

// Creative review statuses.
const (
	CreativeStatusPendingReview     = "pending_review"
	CreativeStatusApproved          = "approved"
	CreativeStatusRejected          = "rejected"
	CreativeStatusAdaptationRequired = "adaptation_required"
)

// ImpressionTrackerPrefix marks asset keys that hold tracking pixels rather
// than renderable assets. They are lifted into delivery_settings when a
// creative is rendered for an adapter and excluded from required-asset
// validation.
const ImpressionTrackerPrefix = "impression_tracker_"

// Asset describes one named piece of a creative (an image, a video, a
// clickthrough URL, or a tracking pixel keyed under ImpressionTrackerPrefix).
type Asset struct {
	URL        string `json:"url,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	Content    string `json:"content,omitempty"`
	URLType    string `json:"url_type,omitempty"`
}

// Creative is an ad asset in a tenant's library, owned by a Principal and
// synced via sync_creatives.
type Creative struct {
	CreativeID  string           `json:"creative_id"`
	TenantID    string           `json:"-"`
	PrincipalID string           `json:"-"`
	Name        string           `json:"name"`
	FormatID    FormatID         `json:"format_id"`
	Assets      map[string]Asset `json:"assets"`
	Status      string           `json:"-"`
	CreatedAt   time.Time        `json:"-"`
	UpdatedAt   time.Time        `json:"-"`
}

// TrackingAssets returns the subset of Assets keyed under
// ImpressionTrackerPrefix, to be lifted into delivery_settings.tracking_urls.
func (c Creative) TrackingAssets() map[string]Asset {
	out := make(map[string]Asset)
	for k, v := range c.Assets {
		if strings.HasPrefix(k, ImpressionTrackerPrefix) {
			out[k] = v
		}
	}
	return out
}

// RenderAssets returns the Assets map with impression-tracker entries
// removed, leaving only assets that participate in required-asset
// validation and adapter rendering.
func (c Creative) RenderAssets() map[string]Asset {
	out := make(map[string]Asset)
	for k, v := range c.Assets {
		if !strings.HasPrefix(k, ImpressionTrackerPrefix) {
			out[k] = v
		}
	}
	return out
}

// CreativeAssignment links a Creative into one package of a media buy.
type CreativeAssignment struct {
	MediaBuyID   string  `json:"media_buy_id"`
	PackageID    string  `json:"package_id"`
	CreativeID   string  `json:"creative_id"`
	Weight       int     `json:"weight"`
	RotationType string  `json:"rotation_type,omitempty"`
	ClickURL     *string `json:"click_url,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}
