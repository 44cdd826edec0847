// Package mock implements a no-external-effect adapter used in tests and
// in dry-run mode for tenants without a wired publisher ad server.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// Adapter is an in-memory stand-in adapter. Targeting reports device, os and
// browser as managed_only, but CreateMediaBuy and UpdateMediaBuy do not check
// the requested overlay against it; every call activates immediately.
type Adapter struct {
	AutomationMode string
}

// New builds a mock Adapter. automationMode defaults to "automatic" when
// empty.
func New(automationMode string) *Adapter {
	if automationMode == "" {
		automationMode = adapter.AutomationAutomatic
	}
	return &Adapter{AutomationMode: automationMode}
}

func (a *Adapter) Name() string { return "mock" }

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
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic create"}, nil
	}
	return adapter.Result{
		Activated:       true,
		PlatformOrderID: fmt.Sprintf("mock-order-%s", req.MediaBuy.MediaBuyID),
		Message:         "created",
	}, nil
}

func (a *Adapter) UpdateMediaBuy(ctx context.Context, req adapter.UpdateRequest) (adapter.Result, error) {
	if req.Dispatch.DryRun {
		return adapter.Result{Activated: true, Message: "dry_run: synthetic update"}, nil
	}
	return adapter.Result{Activated: true, Message: "updated"}, nil
}

func (a *Adapter) UploadCreatives(ctx context.Context, tenantID string, creatives []models.Creative) ([]adapter.CreativeUpload, error) {
	uploads := make([]adapter.CreativeUpload, 0, len(creatives))
	for _, c := range creatives {
		uploads = append(uploads, adapter.CreativeUpload{
			CreativeID:       c.CreativeID,
			PlatformCreative: fmt.Sprintf("mock-creative-%s", c.CreativeID),
		})
	}
	return uploads, nil
}

func (a *Adapter) GetMediaBuyDelivery(ctx context.Context, req adapter.DeliveryRequest) (adapter.DeliveryResponse, error) {
	rows := make([]adapter.DeliveryRow, 0, len(req.MediaBuyIDs))
	for _, id := range req.MediaBuyIDs {
		if req.DryRun {
			rows = append(rows, adapter.DeliveryRow{MediaBuyID: id, Impressions: 1000, Clicks: 10, Spend: 5.00, Currency: "USD"})
			continue
		}
		rows = append(rows, adapter.DeliveryRow{MediaBuyID: id})
	}
	return adapter.DeliveryResponse{Rows: rows}, nil
}

func (a *Adapter) DiscoverPage(ctx context.Context, invType adapter.InventoryType, since time.Time, cursor string) (adapter.DiscoveryPage, error) {
	return adapter.DiscoveryPage{Done: true}, nil
}

func (a *Adapter) CustomTargetingValues(ctx context.Context, keyID string, maxValues int) ([]adapter.DiscoveryItem, error) {
	return nil, nil
}
