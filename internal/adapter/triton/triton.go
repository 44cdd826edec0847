// Package triton implements the adapter.Capability contract against the
// Triton Digital audio ad server. Triton's targeting surface is the
// narrowest of the three: only geo is buyer-overridable, everything else
// (device, station/category, key-value) is resolved from the station's own
// configuration and managed_only.
package triton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// Adapter dispatches against Triton Digital's campaign management API.
type Adapter struct {
	baseURL        string
	stationGroup   string
	httpClient     *http.Client
	automationMode string
}

// New builds a Triton Adapter.
func New(baseURL, stationGroup string, timeout time.Duration, automationMode string) *Adapter {
	if automationMode == "" {
		automationMode = adapter.AutomationConfirmationRequired
	}
	return &Adapter{
		baseURL:        baseURL,
		stationGroup:   stationGroup,
		httpClient:     &http.Client{Timeout: timeout},
		automationMode: automationMode,
	}
}

func (a *Adapter) Name() string { return "triton" }

func (a *Adapter) Targeting() adapter.TargetingCapabilities {
	return adapter.TargetingCapabilities{
		"geo":      adapter.AccessOverlay,
		"device":   adapter.AccessManagedOnly,
		"category": adapter.AccessManagedOnly,
		"key_value": adapter.AccessManagedOnly,
	}
}

func (a *Adapter) CreateMediaBuy(ctx context.Context, req adapter.CreateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic triton campaign"}, nil
	}

	var out struct {
		CampaignID string `json:"campaign_id"`
	}
	if err := a.call(ctx, http.MethodPost, "/campaigns", req.Packages, &out); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{Activated: true, PlatformOrderID: out.CampaignID, Message: "campaign created"}, nil
}

func (a *Adapter) UpdateMediaBuy(ctx context.Context, req adapter.UpdateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic triton update"}, nil
	}

	path := fmt.Sprintf("/campaigns/%s", req.MediaBuy.MediaBuyID)
	if err := a.call(ctx, http.MethodPatch, path, req.Packages, nil); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{Activated: true, Message: "campaign updated"}, nil
}

func (a *Adapter) UploadCreatives(ctx context.Context, tenantID string, creatives []models.Creative) ([]adapter.CreativeUpload, error) {
	uploads := make([]adapter.CreativeUpload, 0, len(creatives))
	for _, c := range creatives {
		var out struct {
			SpotID string `json:"spot_id"`
		}
		if err := a.call(ctx, http.MethodPost, "/spots", c, &out); err != nil {
			return nil, err
		}
		uploads = append(uploads, adapter.CreativeUpload{CreativeID: c.CreativeID, PlatformCreative: out.SpotID})
	}
	return uploads, nil
}

func (a *Adapter) GetMediaBuyDelivery(ctx context.Context, req adapter.DeliveryRequest) (adapter.DeliveryResponse, error) {
	if req.DryRun {
		rows := make([]adapter.DeliveryRow, 0, len(req.MediaBuyIDs))
		for _, id := range req.MediaBuyIDs {
			rows = append(rows, adapter.DeliveryRow{MediaBuyID: id, Impressions: 1000, Clicks: 0, Spend: 5.00, Currency: "USD"})
		}
		return adapter.DeliveryResponse{Rows: rows}, nil
	}

	var out adapter.DeliveryResponse
	if err := a.call(ctx, http.MethodPost, "/reports/delivery", req, &out); err != nil {
		return adapter.DeliveryResponse{}, err
	}
	return out, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal triton request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build triton request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Station-Group", a.stationGroup)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return apperr.Unavailable("triton network unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return apperr.Unavailable("triton returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.Adapter("triton rejected request: %d %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (a *Adapter) DiscoverPage(ctx context.Context, invType adapter.InventoryType, since time.Time, cursor string) (adapter.DiscoveryPage, error) {
	if invType != adapter.InventoryAdUnits {
		// Triton only exposes station inventory, which maps to ad_units;
		// the other inventory types have no Triton equivalent.
		return adapter.DiscoveryPage{Done: true}, nil
	}

	endpoint := "/stations"
	if cursor != "" {
		endpoint += "?cursor=" + cursor
	}

	var out struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	if err := a.call(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return adapter.DiscoveryPage{}, err
	}

	page := adapter.DiscoveryPage{NextCursor: out.NextCursor, Done: out.NextCursor == ""}
	for _, item := range out.Items {
		page.Items = append(page.Items, adapter.DiscoveryItem{ID: item.ID, Name: item.Name})
	}
	return page, nil
}

func (a *Adapter) CustomTargetingValues(ctx context.Context, keyID string, maxValues int) ([]adapter.DiscoveryItem, error) {
	return nil, nil
}
