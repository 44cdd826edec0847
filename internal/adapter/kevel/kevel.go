// Package kevel implements the adapter.Capability contract against the
// Kevel ad server. Kevel exposes a flatter targeting model than GAM: only
// geo and key-value targeting are buyer-overridable, device/OS/browser are
// always resolved server-side from the request and never buyer-settable.
package kevel

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

// Adapter dispatches against a Kevel network over its management API.
type Adapter struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	automationMode string
}

// New builds a Kevel Adapter.
func New(baseURL, apiKey string, timeout time.Duration, automationMode string) *Adapter {
	if automationMode == "" {
		automationMode = adapter.AutomationAutomatic
	}
	return &Adapter{
		baseURL:        baseURL,
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: timeout},
		automationMode: automationMode,
	}
}

func (a *Adapter) Name() string { return "kevel" }

func (a *Adapter) Targeting() adapter.TargetingCapabilities {
	return adapter.TargetingCapabilities{
		"geo":       adapter.AccessOverlay,
		"key_value": adapter.AccessOverlay,
		"device":    adapter.AccessManagedOnly,
		"os":        adapter.AccessManagedOnly,
		"browser":   adapter.AccessManagedOnly,
	}
}

func (a *Adapter) CreateMediaBuy(ctx context.Context, req adapter.CreateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic kevel flight"}, nil
	}

	var out struct {
		FlightID string `json:"flight_id"`
	}
	if err := a.call(ctx, http.MethodPost, "/v1/flights", req.Packages, &out); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{Activated: true, PlatformOrderID: out.FlightID, Message: "flight created"}, nil
}

func (a *Adapter) UpdateMediaBuy(ctx context.Context, req adapter.UpdateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic kevel update"}, nil
	}

	path := fmt.Sprintf("/v1/flights/%s", req.MediaBuy.MediaBuyID)
	if err := a.call(ctx, http.MethodPut, path, req.Packages, nil); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{Activated: true, Message: "flight updated"}, nil
}

func (a *Adapter) UploadCreatives(ctx context.Context, tenantID string, creatives []models.Creative) ([]adapter.CreativeUpload, error) {
	uploads := make([]adapter.CreativeUpload, 0, len(creatives))
	for _, c := range creatives {
		var out struct {
			CreativeID int `json:"creativeId"`
		}
		if err := a.call(ctx, http.MethodPost, "/v1/creatives", c, &out); err != nil {
			return nil, err
		}
		uploads = append(uploads, adapter.CreativeUpload{CreativeID: c.CreativeID, PlatformCreative: fmt.Sprintf("%d", out.CreativeID)})
	}
	return uploads, nil
}

func (a *Adapter) GetMediaBuyDelivery(ctx context.Context, req adapter.DeliveryRequest) (adapter.DeliveryResponse, error) {
	if req.DryRun {
		rows := make([]adapter.DeliveryRow, 0, len(req.MediaBuyIDs))
		for _, id := range req.MediaBuyIDs {
			rows = append(rows, adapter.DeliveryRow{MediaBuyID: id, Impressions: 1000, Clicks: 10, Spend: 5.00, Currency: "USD"})
		}
		return adapter.DeliveryResponse{Rows: rows}, nil
	}

	var out adapter.DeliveryResponse
	if err := a.call(ctx, http.MethodPost, "/v1/reports/delivery", req, &out); err != nil {
		return adapter.DeliveryResponse{}, err
	}
	return out, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal kevel request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build kevel request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Adzerk-ApiKey", a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return apperr.Unavailable("kevel network unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return apperr.Unavailable("kevel returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.Adapter("kevel rejected request: %d %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (a *Adapter) DiscoverPage(ctx context.Context, invType adapter.InventoryType, since time.Time, cursor string) (adapter.DiscoveryPage, error) {
	var endpoint string
	switch invType {
	case adapter.InventoryAdUnits:
		endpoint = "/v1/inventory/sites"
	case adapter.InventoryPlacements:
		endpoint = "/v1/inventory/zones"
	default:
		// Kevel has no concept of labels, custom targeting keys, or
		// audience segments as distinct inventory types; these types are
		// simply not discoverable on this adapter.
		return adapter.DiscoveryPage{Done: true}, nil
	}
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
		page.Items = append(page.Items, adapter.DiscoveryItem{ID: item.ID, Name: item.Name, LastModified: time.Now()})
	}
	return page, nil
}

func (a *Adapter) CustomTargetingValues(ctx context.Context, keyID string, maxValues int) ([]adapter.DiscoveryItem, error) {
	return nil, nil
}
