// Package gam implements the adapter.Capability contract against Google Ad
// Manager. Geographic and key-value targeting are buyer-overridable;
// device/OS/browser are resolved from platform signals and never accepted
// from the buyer overlay.
package gam

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

// Adapter dispatches media-buy and inventory operations against a Google
// Ad Manager network over its SOAP/REST gateway, fronted here by a plain
// HTTP client against a configured base URL (the network-specific gateway
// endpoint, injected rather than hardcoded so tenants can point at
// different GAM networks).
type Adapter struct {
	baseURL        string
	networkCode    string
	httpClient     *http.Client
	automationMode string
}

// New builds a GAM Adapter against the given network gateway base URL.
func New(baseURL, networkCode string, timeout time.Duration, automationMode string) *Adapter {
	if automationMode == "" {
		automationMode = adapter.AutomationConfirmationRequired
	}
	return &Adapter{
		baseURL:        baseURL,
		networkCode:    networkCode,
		httpClient:     &http.Client{Timeout: timeout},
		automationMode: automationMode,
	}
}

func (a *Adapter) Name() string { return "gam" }

// Targeting declares GAM's overlay/managed_only split: geo and key-value
// targeting are buyer-settable; device, OS, browser, category, and keyword
// are resolved from platform signals and managed_only.
func (a *Adapter) Targeting() adapter.TargetingCapabilities {
	return adapter.TargetingCapabilities{
		"geo":       adapter.AccessOverlay,
		"key_value": adapter.AccessOverlay,
		"device":    adapter.AccessManagedOnly,
		"os":        adapter.AccessManagedOnly,
		"browser":   adapter.AccessManagedOnly,
		"category":  adapter.AccessManagedOnly,
		"keyword":   adapter.AccessManagedOnly,
	}
}

func (a *Adapter) CreateMediaBuy(ctx context.Context, req adapter.CreateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic GAM order"}, nil
	}

	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := a.call(ctx, http.MethodPost, "/orders", createOrderPayload(req), &out); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{
		Activated:       true,
		PlatformOrderID: out.OrderID,
		Message:         "order created",
	}, nil
}

func (a *Adapter) UpdateMediaBuy(ctx context.Context, req adapter.UpdateRequest) (adapter.Result, error) {
	if violations := adapter.NegotiateTargeting(a.Targeting(), req.RequestedOverlay); len(violations) > 0 {
		return adapter.Result{}, apperr.Adapter("Cannot fulfill buyer contract: unsupported overlay targeting %v", violations)
	}
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic GAM update"}, nil
	}

	path := fmt.Sprintf("/orders/%s", req.MediaBuy.MediaBuyID)
	if err := a.call(ctx, http.MethodPatch, path, req.Packages, nil); err != nil {
		return adapter.Result{}, err
	}
	return adapter.Result{Activated: true, Message: "order updated"}, nil
}

func (a *Adapter) UploadCreatives(ctx context.Context, tenantID string, creatives []models.Creative) ([]adapter.CreativeUpload, error) {
	uploads := make([]adapter.CreativeUpload, 0, len(creatives))
	for _, c := range creatives {
		var out struct {
			PlatformCreativeID string `json:"platform_creative_id"`
		}
		if err := a.call(ctx, http.MethodPost, "/creatives", c, &out); err != nil {
			return nil, err
		}
		uploads = append(uploads, adapter.CreativeUpload{CreativeID: c.CreativeID, PlatformCreative: out.PlatformCreativeID})
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
	if err := a.call(ctx, http.MethodPost, "/delivery", req, &out); err != nil {
		return adapter.DeliveryResponse{}, err
	}
	return out, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gam request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gam request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-GAM-Network-Code", a.networkCode)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return apperr.Unavailable("gam network unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return apperr.Unavailable("gam returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.Adapter("gam rejected request: %d %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func createOrderPayload(req adapter.CreateRequest) any {
	return struct {
		BuyerRef string                `json:"buyer_ref"`
		Packages []models.MediaPackage `json:"packages"`
	}{
		BuyerRef: req.MediaBuy.BuyerRef,
		Packages: req.Packages,
	}
}
